package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/samber/lo"

	"github.com/murat48/zktexasholdem-sub001/domain"
)

type identityRequest struct {
	Address       string `json:"address" validate:"required"`
	SessionPubKey string `json:"sessionPubKey"`
}

func (req identityRequest) identity() domain.Identity {
	return domain.Identity{Address: req.Address, SessionPubKey: req.SessionPubKey}
}

type createRoomResponse struct {
	Code  string `json:"code"`
	Token string `json:"token,omitempty"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := s.decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}

	code, token, err := s.relay.CreateRoom(req.identity())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, createRoomResponse{Code: string(code), Token: token})
}

type joinRoomResponse struct {
	Ok    bool   `json:"ok"`
	Token string `json:"token,omitempty"`
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := s.decode(r, &req); err != nil {
		s.writeBadRequest(w, err)
		return
	}

	code := domain.NormalizeCode(r.PathValue("code"))
	token, err := s.relay.JoinRoom(code, req.identity())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, joinRoomResponse{Ok: true, Token: token})
}

type pollActionResponse struct {
	Action json.RawMessage `json:"action"`
}

// handlePollAction is the durable pull path for guest actions. It never
// reports not-found: an unknown or evicted room polls as empty, identical to
// an empty mailbox.
func (s *Server) handlePollAction(w http.ResponseWriter, r *http.Request) {
	code := domain.NormalizeCode(r.PathValue("code"))
	action := s.relay.PollAction(code)
	s.writeJSON(w, http.StatusOK, pollActionResponse{Action: action})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	code := domain.NormalizeCode(r.PathValue("code"))
	s.writeJSON(w, http.StatusOK, s.relay.Snapshot(code))
}

type roomListResponse struct {
	Rooms []domain.RoomView `json:"rooms"`
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, roomListResponse{Rooms: s.relay.Rooms()})
}

type healthzResponse struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	ActiveRooms int    `json:"activeRooms"`
	Stats       any    `json:"stats"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	views := s.relay.Rooms()
	s.writeJSON(w, http.StatusOK, healthzResponse{
		Status:      "ok",
		Rooms:       len(views),
		ActiveRooms: lo.CountBy(views, func(v domain.RoomView) bool { return v.Subscribers > 0 }),
		Stats:       s.monitor.Snapshot(),
	})
}
