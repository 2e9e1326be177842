// Package services contains the server-side business logic. This file
// implements AuthService: registration, login, refresh-token rotation, and
// logout over a bounded multi-device session table.
//
// Every method works against a caller-supplied dbx.DBTX; the caller owns the
// transaction and decides whether to commit. Domain errors (the common.Err*
// set) are meant to commit: mutations performed before the error — session
// triage above all — must survive.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/avolkov/uniadmin/internal/common"
	"github.com/avolkov/uniadmin/internal/dbx"
	"github.com/avolkov/uniadmin/internal/logging"
	"github.com/avolkov/uniadmin/internal/server/auth"
	"github.com/avolkov/uniadmin/internal/server/models"
	"github.com/avolkov/uniadmin/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived bearer token and a long-lived opaque
// refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AuthService struct {
	rm     repomanager.RepositoryManager
	hasher *auth.PasswordHasher
	bearer *auth.BearerIssuer
	minter *auth.TokenMinter
	clock  auth.Clock
	policy SessionPolicy
	logger logging.Logger
}

func NewAuthService(
	rm repomanager.RepositoryManager,
	hasher *auth.PasswordHasher,
	bearer *auth.BearerIssuer,
	minter *auth.TokenMinter,
	clock auth.Clock,
	policy SessionPolicy,
	logger logging.Logger,
) *AuthService {
	return &AuthService{
		rm:     rm,
		hasher: hasher,
		bearer: bearer,
		minter: minter,
		clock:  clock,
		policy: policy,
		logger: logger,
	}
}

// Register hashes the password and creates the account. A taken email yields
// ErrEmailInUse.
func (s *AuthService) Register(ctx context.Context, db dbx.DBTX, email, password string) (*models.Account, error) {
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	account, err := s.rm.Accounts(db).Create(ctx, &models.Account{Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrEmailInUse
		}
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	s.logger.Info(ctx, "account registered", "account_id", account.ID)
	return account, nil
}

// Login verifies the credentials and opens (or replaces) the session for the
// device fingerprint. An unknown email and a wrong password both come back as
// ErrInvalidCredentials so callers cannot probe which emails exist.
func (s *AuthService) Login(ctx context.Context, db dbx.DBTX, email, password, fingerprint string) (*TokenPair, error) {
	account, err := s.rm.Accounts(db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error finding account: %w", err)
	}

	match, err := s.hasher.Compare(ctx, password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("error verifying password: %w", err)
	}
	if !match {
		return nil, common.ErrInvalidCredentials
	}

	sessionRepo := s.rm.Sessions(db)
	_, err = sessionRepo.Find(ctx, account.ID, fingerprint)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("error finding session: %w", err)
		}
		// New device: the cap counts every stored session, expired or not.
		count, err := sessionRepo.Count(ctx, account.ID)
		if err != nil {
			return nil, fmt.Errorf("error counting sessions: %w", err)
		}
		if !s.policy.MayCreate(count) {
			return nil, common.ErrSessionLimitReached
		}
	}

	pair, err := s.issueTokens(ctx, db, account, fingerprint)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "login", "account_id", account.ID)
	return pair, nil
}

// Refresh rotates the refresh token for one device. A fingerprint with no
// session on an existing account, or a token that does not match the stored
// one, is treated as suspicious: every session of the account is destroyed
// before the error is returned (triage). An expired session likewise tears
// down all sessions and reports ErrSessionExpired.
func (s *AuthService) Refresh(ctx context.Context, db dbx.DBTX, accountID int64, presented, fingerprint string) (*TokenPair, error) {
	account, _, err := s.validateSession(ctx, db, accountID, presented, fingerprint, true)
	if err != nil {
		return nil, err
	}

	pair, err := s.issueTokens(ctx, db, account, fingerprint)
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "session refreshed", "account_id", account.ID)
	return pair, nil
}

// Logout removes the session for one device. Validation mirrors Refresh but
// never cascades: logging out is an intention to invalidate one device, so
// failures must not destroy the account's other sessions.
func (s *AuthService) Logout(ctx context.Context, db dbx.DBTX, accountID int64, presented, fingerprint string) error {
	account, _, err := s.validateSession(ctx, db, accountID, presented, fingerprint, false)
	if err != nil {
		return err
	}

	if err := s.rm.Sessions(db).Delete(ctx, accountID, fingerprint); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidSession
		}
		return fmt.Errorf("error deleting session: %w", err)
	}

	s.logger.Info(ctx, "logout", "account_id", account.ID)
	return nil
}

// Sessions lists the account's sessions, expired rows included.
func (s *AuthService) Sessions(ctx context.Context, db dbx.DBTX, accountID int64) ([]models.Session, error) {
	list, err := s.rm.Sessions(db).List(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("error listing sessions: %w", err)
	}
	return list, nil
}

// ChangePassword verifies the old password, stores a hash of the new one and
// revokes every session of the account.
func (s *AuthService) ChangePassword(ctx context.Context, db dbx.DBTX, accountID int64, oldPassword, newPassword string) error {
	accountRepo := s.rm.Accounts(db)

	account, err := accountRepo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrAccountNotFound
		}
		return fmt.Errorf("error finding account: %w", err)
	}

	match, err := s.hasher.Compare(ctx, oldPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("error verifying password: %w", err)
	}
	if !match {
		return common.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if err := accountRepo.UpdatePassword(ctx, accountID, hash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	if _, err := s.rm.Sessions(db).DeleteAll(ctx, accountID); err != nil {
		return fmt.Errorf("error revoking sessions: %w", err)
	}

	s.logger.Info(ctx, "password changed, sessions revoked", "account_id", account.ID)
	return nil
}

// validateSession runs steps 1-4 shared by Refresh and Logout. When triage is
// true, a missing session, a token mismatch, or an expired session destroys
// every session of the account before the domain error is returned.
func (s *AuthService) validateSession(ctx context.Context, db dbx.DBTX, accountID int64, presented, fingerprint string, triage bool) (*models.Account, *models.Session, error) {
	account, err := s.rm.Accounts(db).FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrAccountNotFound
		}
		return nil, nil, fmt.Errorf("error finding account: %w", err)
	}

	sessionRepo := s.rm.Sessions(db)

	session, err := sessionRepo.Find(ctx, accountID, fingerprint)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, s.fail(ctx, db, accountID, triage, common.ErrInvalidSession)
		}
		return nil, nil, fmt.Errorf("error finding session: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(session.RefreshToken), []byte(presented)) != 1 {
		return nil, nil, s.fail(ctx, db, accountID, triage, common.ErrInvalidSession)
	}

	if s.clock.Now() > session.ExpiresAt {
		return nil, nil, s.fail(ctx, db, accountID, triage, common.ErrSessionExpired)
	}

	return account, session, nil
}

// fail optionally performs triage, then returns the domain error.
func (s *AuthService) fail(ctx context.Context, db dbx.DBTX, accountID int64, triage bool, domainErr error) error {
	if !triage {
		return domainErr
	}
	removed, err := s.rm.Sessions(db).DeleteAll(ctx, accountID)
	if err != nil {
		return fmt.Errorf("error during session triage: %w", err)
	}
	s.logger.Warn(ctx, "suspicious refresh, all sessions revoked",
		"account_id", accountID, "revoked", len(removed))
	return domainErr
}

// issueTokens mints a fresh refresh token, replaces the session row and signs
// a new bearer token. Racing logins on the same (account, fingerprint) can
// trip a constraint; the upsert is retried exactly once.
func (s *AuthService) issueTokens(ctx context.Context, db dbx.DBTX, account *models.Account, fingerprint string) (*TokenPair, error) {
	refresh, err := s.minter.Mint()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &models.Session{
		AccountID:    account.ID,
		Fingerprint:  fingerprint,
		RefreshToken: refresh,
		ExpiresAt:    now + s.policy.SessionTTL(),
	}

	sessionRepo := s.rm.Sessions(db)
	if err := sessionRepo.Upsert(ctx, session); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			err = sessionRepo.Upsert(ctx, session)
		}
		if err != nil {
			if errors.Is(err, common.ErrorAccountMissing) {
				return nil, common.ErrAccountNotFound
			}
			return nil, fmt.Errorf("error storing session: %w", err)
		}
	}

	access, err := s.bearer.Encode(auth.Claims{
		AccountID: account.ID,
		Email:     account.Email,
		ExpiresAt: now + s.policy.BearerTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("error signing bearer token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
