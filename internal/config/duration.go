package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Duration wraps time.Duration for JSON. It marshals as a Go duration string
// (e.g. "30s", "1m30s") and unmarshals from either such a string or a
// non-negative number of milliseconds, the form fetch-style clients send.
type Duration time.Duration

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] != '"' {
		var ms json.Number
		if err := json.Unmarshal(b, &ms); err != nil {
			return fmt.Errorf("duration must be a string or milliseconds: %w", err)
		}
		n, err := ms.Int64()
		if err != nil || n < 0 {
			return fmt.Errorf("invalid duration milliseconds %s", ms)
		}
		*d = Duration(time.Duration(n) * time.Millisecond)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}
