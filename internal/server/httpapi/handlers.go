// Package httpapi is the HTTP surface over the auth service. It owns the
// per-request transaction: every mutating handler opens one, hands it to the
// service and commits unless an internal error occurred. Domain errors commit
// too — mutations made before the error (session triage) must persist.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avolkov/uniadmin/internal/common"
	"github.com/avolkov/uniadmin/internal/dbx"
	"github.com/avolkov/uniadmin/internal/logging"
	"github.com/avolkov/uniadmin/internal/server/auth"
	"github.com/avolkov/uniadmin/internal/server/models"
	"github.com/avolkov/uniadmin/internal/server/services"
)

// msgUnauthorized is the single body every credential failure maps to, so
// responses cannot be used as an oracle.
const msgUnauthorized = "unauthorized"

const msgInternal = "internal error"

// fingerprintHeader carries the caller-chosen device fingerprint; User-Agent
// is the fallback for clients that send nothing better.
const fingerprintHeader = "X-Device-Fingerprint"

type Handler struct {
	db     *sql.DB
	auth   *services.AuthService
	bearer *auth.BearerIssuer
	clock  auth.Clock
	logger logging.Logger
}

func NewHandler(db *sql.DB, authService *services.AuthService, bearer *auth.BearerIssuer, clock auth.Clock, logger logging.Logger) *Handler {
	return &Handler{db: db, auth: authService, bearer: bearer, clock: clock, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionRequest struct {
	UserID       int64  `json:"user_id"`
	RefreshToken string `json:"refresh_token"`
}

type passwordChangeRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type registerResponse struct {
	ID int64 `json:"id"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	Fingerprint string `json:"fingerprint"`
	ExpiresAt   int64  `json:"expires_at"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	var account *models.Account
	err := h.inTx(r.Context(), func(ctx context.Context, tx dbx.DBTX) error {
		a, err := h.auth.Register(ctx, tx, req.Email, req.Password)
		account = a
		return err
	})
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{ID: account.ID})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	fingerprint, ok := deviceFingerprint(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid device fingerprint")
		return
	}

	var pair *services.TokenPair
	err := h.inTx(r.Context(), func(ctx context.Context, tx dbx.DBTX) error {
		p, err := h.auth.Login(ctx, tx, req.Email, req.Password, fingerprint)
		pair = p
		return err
	})
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	req, fingerprint, ok := h.decodeSessionRequest(w, r)
	if !ok {
		return
	}

	var pair *services.TokenPair
	err := h.inTx(r.Context(), func(ctx context.Context, tx dbx.DBTX) error {
		p, err := h.auth.Refresh(ctx, tx, req.UserID, req.RefreshToken, fingerprint)
		pair = p
		return err
	})
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	req, fingerprint, ok := h.decodeSessionRequest(w, r)
	if !ok {
		return
	}

	err := h.inTx(r.Context(), func(ctx context.Context, tx dbx.DBTX) error {
		return h.auth.Logout(ctx, tx, req.UserID, req.RefreshToken, fingerprint)
	})
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, nil)
}

// HandleSessions lists the caller's device sessions. Requires Authenticate.
func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	list, err := h.auth.Sessions(r.Context(), h.db, id)
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}

	out := make([]sessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, sessionResponse{Fingerprint: s.Fingerprint, ExpiresAt: s.ExpiresAt})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandlePasswordChange replaces the caller's password and revokes every
// session. Requires Authenticate.
func (h *Handler) HandlePasswordChange(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var req passwordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "old and new passwords are required")
		return
	}

	err := h.inTx(r.Context(), func(ctx context.Context, tx dbx.DBTX) error {
		return h.auth.ChangePassword(ctx, tx, id, req.OldPassword, req.NewPassword)
	})
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeSessionRequest parses the shared refresh/logout request shape plus
// the device fingerprint.
func (h *Handler) decodeSessionRequest(w http.ResponseWriter, r *http.Request) (sessionRequest, string, bool) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, "", false
	}
	if req.UserID == 0 || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "user_id and refresh_token are required")
		return req, "", false
	}
	fingerprint, ok := deviceFingerprint(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid device fingerprint")
		return req, "", false
	}
	return req, fingerprint, true
}

// deviceFingerprint reads the opaque fingerprint the caller supplies. The
// value is bounded; how it is derived is the client's business.
func deviceFingerprint(r *http.Request) (string, bool) {
	fp := r.Header.Get(fingerprintHeader)
	if fp == "" {
		fp = r.Header.Get("User-Agent")
	}
	if fp == "" || len(fp) > models.MaxFingerprintBytes {
		return "", false
	}
	return fp, true
}

// inTx runs fn inside one transaction. Internal errors roll back; domain
// errors and success commit.
func (h *Handler) inTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	var domainErr error
	err := dbx.WithTx(ctx, h.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := fn(ctx, tx); err != nil {
			if common.IsDomainError(err) {
				domainErr = err
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	return domainErr
}

// writeServiceError maps service errors onto HTTP statuses. All credential
// failures share one body; internal causes are logged once and redacted.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidSession),
		errors.Is(err, common.ErrSessionExpired),
		errors.Is(err, common.ErrAccountNotFound):
		h.logger.Debug(ctx, "unauthorized", "reason", err.Error())
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, common.ErrEmailInUse),
		errors.Is(err, common.ErrSessionLimitReached):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(ctx, "internal error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}
