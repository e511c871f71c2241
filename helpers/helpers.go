// Small utilities shared across the daemon.
package helpers

import (
	"encoding/hex"
	"io"
	"time"
)

// WriteAll retries short writes until b is fully delivered. The pidlock file
// and other tiny writes must never end up half-written.
func WriteAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// IntSecondDefault converts a config value in whole seconds, zero meaning
// "not set, use def".
func IntSecondDefault(x int, def time.Duration) time.Duration {
	if x == 0 {
		return def
	}
	return time.Duration(x) * time.Second
}

// MustHex is for startup-time decoding of config secrets; an invalid string
// is a config error and config errors are fatal anyway.
func MustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
