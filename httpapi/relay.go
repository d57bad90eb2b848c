package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/murat48/zktexasholdem-sub001/domain"
)

type relayRequest struct {
	Code    string          `json:"code" validate:"required"`
	Sender  string          `json:"sender" validate:"required,oneof=host guest chat"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

type relayResponse struct {
	Ok bool `json:"ok"`
}

// handleRelay accepts one state/action/chat submission and acknowledges it
// synchronously. The push half of delivery is unacknowledged by design.
func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	var req relayRequest
	if err := s.decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}

	code := domain.NormalizeCode(req.Code)
	role := domain.Role(req.Sender)

	if s.tokens.Enabled() {
		if _, err := s.tokens.Verify(bearerToken(r), code, role); err != nil {
			s.writeError(w, err)
			return
		}
	}

	err := s.relay.Submit(domain.RelayCommand{
		Code:    code,
		Sender:  role,
		Payload: req.Payload,
		At:      time.Now().UTC(),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, relayResponse{Ok: true})
}
