package configutil

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   any
		want time.Duration
	}{
		{"300s", 5 * time.Minute},
		{"300", 5 * time.Minute},
		{"1h", time.Hour},
		{300, 5 * time.Minute},
		{int64(2), 2 * time.Second},
		{1.5, 1500 * time.Millisecond},
		{time.Minute, time.Minute},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDuration("five minutes")
	require.Error(t, err)
	_, err = ParseDuration(true)
	require.Error(t, err)
}

func TestDurationYAMLAndJSON(t *testing.T) {
	var v struct {
		Timeout Duration `yaml:"timeout" json:"timeout"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("timeout: 300"), &v))
	require.Equal(t, 5*time.Minute, v.Timeout.D())

	require.NoError(t, json.Unmarshal([]byte(`{"timeout":"2m"}`), &v))
	require.Equal(t, 2*time.Minute, v.Timeout.D())

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	require.Equal(t, "timeout: 2m0s\n", string(out))

	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.JSONEq(t, `{"timeout":"2m0s"}`, string(b))
}

func TestDurationHookFunc(t *testing.T) {
	hook := DurationHookFunc()
	got, err := hook(reflect.TypeOf(""), durationType, "10s")
	require.NoError(t, err)
	require.Equal(t, Duration(10*time.Second), got)

	// other target types pass through
	got, err = hook(reflect.TypeOf(""), reflect.TypeOf(""), "10s")
	require.NoError(t, err)
	require.Equal(t, "10s", got)
}
