package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/murat48/zktexasholdem-sub001/domain"
	"github.com/murat48/zktexasholdem-sub001/domain/event"
	"github.com/murat48/zktexasholdem-sub001/errors"
)

// handleEvents opens the one-way push channel for a (room, identity) pair
// and streams events until either side closes. One JSON payload per frame;
// intermediary buffering is disabled so frames reach the client immediately.
//
// The keepalive ticker checks on every beat whether this channel is still
// the registered subscriber and stops itself otherwise, so a superseded
// connection never leaks a timer.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	code := domain.NormalizeCode(r.PathValue("code"))
	identity := domain.Identity{
		Address:       r.URL.Query().Get("address"),
		SessionPubKey: r.URL.Query().Get("pubKey"),
	}
	if identity.Address == "" {
		s.writeBadRequest(w, fmt.Errorf("missing address query parameter"))
		return
	}

	if s.tokens.Enabled() {
		claims, err := s.tokens.Verify(bearerToken(r), code, domain.RoleChat)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if claims.Address != identity.Address {
			s.writeError(w, fmt.Errorf("token bound to another identity: %w", errors.ErrInvalidToken))
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	ch, err := s.relay.OpenChannel(code, identity)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer s.relay.CloseChannel(code, identity.Address, ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(s.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.log.Info("Client disconnected", "code", code, "address", identity.Address)
			return
		case <-ch.Done():
			// Superseded by a reconnect or closed by an eviction sweep.
			return
		case evt := <-ch.Events():
			if err := writeFrame(w, flusher, evt); err != nil {
				s.log.Warn("Stream write failed", "code", code, "address", identity.Address, "error", err)
				return
			}
		case <-ticker.C:
			if !s.relay.ChannelAlive(code, identity.Address, ch) {
				return
			}
			if err := writeFrame(w, flusher, event.NewPing()); err != nil {
				return
			}
		}
	}
}

func writeFrame(w http.ResponseWriter, flusher http.Flusher, evt event.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
