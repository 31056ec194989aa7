package redis

import (
	"reflect"
	"strconv"
	"time"

	"github.com/golang/snappy"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// encode marshals a record to snappy-compressed JSON for blob keys.
func encode(v interface{}) ([]byte, error) {
	if v == nil || (reflect.ValueOf(v).Kind() == reflect.Ptr && reflect.ValueOf(v).IsNil()) {
		return nil, errors.New("cannot encode nil record")
	}
	enc, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, enc), nil
}

// decode reverses encode into dst.
func decode(data []byte, dst interface{}) error {
	dec, err := snappy.Decode(nil, data)
	if err != nil {
		return err
	}
	return json.Unmarshal(dec, dst)
}

// Hash fields store instants as unix milliseconds so Lua scripts can compare
// them as plain numbers. Zero means the zero time.

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func timeToMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fieldInt64(m map[string]string, field string) int64 {
	v, ok := m[field]
	if !ok || v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func fieldInt(m map[string]string, field string) int {
	return int(fieldInt64(m, field))
}

func fieldBool(m map[string]string, field string) bool {
	return m[field] == "1"
}

func fieldTime(m map[string]string, field string) time.Time {
	return msToTime(fieldInt64(m, field))
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
