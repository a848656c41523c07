package addrquota

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuota_Blocked(t *testing.T) {
	q := NewQuota(0.001, 2, 16)
	a := &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 1234}
	sameRange := &net.TCPAddr{IP: net.ParseIP("10.0.0.77"), Port: 999}
	other := &net.TCPAddr{IP: net.ParseIP("10.0.1.5"), Port: 1234}

	require.False(t, q.Blocked(a))
	require.False(t, q.Blocked(sameRange))
	require.True(t, q.Blocked(a), "burst of 2 exhausted for 10.0.0.0")
	require.False(t, q.Blocked(other))
}

func TestQuota_Disabled(t *testing.T) {
	var nilQuota *Quota
	a := &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 1234}
	require.False(t, nilQuota.Blocked(a))

	q := NewQuota(0, 0, 16)
	for i := 0; i < 10; i++ {
		require.False(t, q.Blocked(a))
	}
}

func TestIPKey(t *testing.T) {
	require.Equal(t, "192.168.1.0", ipKey(&net.TCPAddr{IP: net.ParseIP("192.168.1.42")}))
	require.Equal(t, "", ipKey(&net.UnixAddr{Name: "/tmp/sock", Net: "unix"}))
	require.Equal(t, "", ipKey(nil))
}
