// Package httpapi exposes the relay over HTTP: a server-push event stream
// per (room, identity) pair plus the polling fallback endpoints.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/murat48/zktexasholdem-sub001/auth"
	"github.com/murat48/zktexasholdem-sub001/errors"
	"github.com/murat48/zktexasholdem-sub001/observability"
	"github.com/murat48/zktexasholdem-sub001/services"
)

type Server struct {
	log       *slog.Logger
	relay     services.IRelayService
	tokens    *auth.Authenticator
	monitor   *observability.Monitor
	validate  *validator.Validate
	keepalive time.Duration
}

func NewServer(
	log *slog.Logger,
	relay services.IRelayService,
	tokens *auth.Authenticator,
	monitor *observability.Monitor,
	keepalive time.Duration,
) *Server {
	return &Server{
		log:       log,
		relay:     relay,
		tokens:    tokens,
		monitor:   monitor,
		validate:  validator.New(),
		keepalive: keepalive,
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/rooms", s.handleCreateRoom)
	mux.HandleFunc("POST /v1/rooms/{code}/join", s.handleJoinRoom)
	mux.HandleFunc("GET /v1/rooms/{code}/events", s.handleEvents)
	mux.HandleFunc("POST /v1/rooms/{code}/action", s.handlePollAction)
	mux.HandleFunc("GET /v1/rooms/{code}", s.handleSnapshot)
	mux.HandleFunc("GET /v1/rooms", s.handleListRooms)
	mux.HandleFunc("POST /v1/relay", s.handleRelay)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return s.validate.Struct(dst)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, errors.MapToHTTPStatus(err), errorResponse{Error: err.Error()})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, err error) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, found := strings.CutPrefix(header, "Bearer "); found {
		return token
	}
	return ""
}
