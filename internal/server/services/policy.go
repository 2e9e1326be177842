package services

import "github.com/avolkov/uniadmin/internal/server/config"

// SessionPolicy bounds the session table per account and fixes the token
// lifetimes for the life of the process.
//
// The cap is measured against the TOTAL row count, expired rows included.
// Expired rows are swept by operational tooling, not by the policy; the cap
// defends against runaway device registrations.
type SessionPolicy struct {
	maxSessions int64
	sessionTTL  int64
	bearerTTL   int64
}

func NewSessionPolicy(cfg *config.Config) SessionPolicy {
	return SessionPolicy{
		maxSessions: int64(cfg.MaxSessionsPerAccount),
		sessionTTL:  int64(cfg.SessionValidityDuration.Seconds()),
		bearerTTL:   int64(cfg.BearerValidityDuration.Seconds()),
	}
}

// MayCreate reports whether an account with the given number of existing
// sessions may open another one.
func (p SessionPolicy) MayCreate(existing int64) bool {
	return existing < p.maxSessions
}

// SessionTTL returns the session lifetime in seconds.
func (p SessionPolicy) SessionTTL() int64 { return p.sessionTTL }

// BearerTTL returns the bearer-token lifetime in seconds.
func (p SessionPolicy) BearerTTL() int64 { return p.bearerTTL }
