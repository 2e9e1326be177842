package models

// Session authorizes refresh for one (account, device) pair. The composite
// key is (AccountID, Fingerprint); Fingerprint is opaque caller-supplied data
// of at most MaxFingerprintBytes. RefreshToken is an opaque high-entropy
// string; ExpiresAt is whole seconds since the Unix epoch.
type Session struct {
	AccountID    int64
	Fingerprint  string
	RefreshToken string
	ExpiresAt    int64
}

// MaxFingerprintBytes bounds the caller-supplied device fingerprint.
const MaxFingerprintBytes = 500
