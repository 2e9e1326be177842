package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the HTTP routes. Health and metrics stay outside the
// authenticated subrouter.
func NewRouter(h *Handler, m *Metrics) *mux.Router {
	r := mux.NewRouter()

	r.Use(h.RequestID)
	r.Use(h.Logging)
	r.Use(m.Middleware)

	r.HandleFunc("/health", HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.HandleReady).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/auth/register", h.HandleRegister).Methods(http.MethodPost)
	v1.HandleFunc("/auth/login", h.HandleLogin).Methods(http.MethodPost)
	v1.HandleFunc("/auth/refresh", h.HandleRefresh).Methods(http.MethodPost)
	v1.HandleFunc("/auth/logout", h.HandleLogout).Methods(http.MethodPost)

	private := v1.NewRoute().Subrouter()
	private.Use(h.Authenticate)
	private.HandleFunc("/auth/sessions", h.HandleSessions).Methods(http.MethodGet)
	private.HandleFunc("/auth/password", h.HandlePasswordChange).Methods(http.MethodPost)

	return r
}
