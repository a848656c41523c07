package configutil

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// Duration is a configuration duration.
// It is a wrapper around time.Duration that implements the json and yaml interfaces.
//
//   - string is parsed using time.ParseDuration, a plain number string is seconds.
//   - integers and floats are interpreted as seconds.
type Duration time.Duration

// Make sure Duration implements the interfaces at compile time.
var (
	_ yaml.Marshaler   = (*Duration)(nil)
	_ yaml.Unmarshaler = (*Duration)(nil)
	_ json.Marshaler   = (*Duration)(nil)
	_ json.Unmarshaler = (*Duration)(nil)
)

// D returns the time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var a any
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	return d.set(a)
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var a any
	if err := value.Decode(&a); err != nil {
		return err
	}
	return d.set(a)
}

func (d *Duration) set(a any) error {
	dur, err := ParseDuration(a)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// ParseDuration converts a decoded config value into a time.Duration.
func ParseDuration(a any) (time.Duration, error) {
	switch v := a.(type) {
	case string:
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(secs) * time.Second, nil
		}
		return time.ParseDuration(v)
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case uint64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case time.Duration:
		return v, nil
	case Duration:
		return time.Duration(v), nil
	default:
		return 0, fmt.Errorf("invalid duration type %T: %v", v, v)
	}
}

var durationType = reflect.TypeOf(Duration(0))

// DurationHookFunc is a mapstructure decode hook that converts
// strings and numbers into a Duration, for use with viper.DecodeHook.
func DurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, t reflect.Type, data any) (any, error) {
		if t != durationType {
			return data, nil
		}
		dur, err := ParseDuration(data)
		if err != nil {
			return nil, err
		}
		return Duration(dur), nil
	}
}
