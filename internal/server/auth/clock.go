package auth

import "time"

// Clock yields wall-clock seconds since the Unix epoch. It exists as an
// interface so tests can move time deterministically. Time may step backwards
// between processes (NTP); callers treat now > expiry uniformly as expired.
type Clock interface {
	Now() int64
}

// SystemClock reads the real time.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }
