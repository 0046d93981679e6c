package server

import (
	"net/http"
	"strings"

	"github.com/spigell/resume-ranker/internal/analysis"
	"github.com/spigell/resume-ranker/internal/conversation"
	"github.com/spigell/resume-ranker/internal/requirements"
)

type chatSendRequest struct {
	Message string `json:"message"`
}

type chatProfileRequest struct {
	Name string `json:"name" validate:"required"`
}

type chatApplyRequest struct {
	Draft string `json:"draft"`
}

type chatStateResponse struct {
	analysis.Envelope
	SessionID string                 `json:"session_id"`
	Context   conversation.Context   `json:"context"`
	Messages  []conversation.Message `json:"messages"`
	Profiles  []conversation.Profile `json:"profiles"`
	Pending   string                 `json:"pending,omitempty"`
	Closed    bool                   `json:"closed"`
}

type chatSendResponse struct {
	analysis.Envelope
	Reply   *conversation.Message `json:"reply,omitempty"`
	Context conversation.Context  `json:"context"`
}

type chatApplyResponse struct {
	analysis.Envelope
	Requirements *requirements.JobRequirements `json:"requirements"`
}

// chatSession returns the current authoring session, starting a new one when
// none exists or the previous draft was applied.
func (s *Server) chatSession() *conversation.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.session.Closed() {
		s.session = conversation.New(s.service, s.profiles, s.logger)
	}
	return s.session
}

func (s *Server) handleChatState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, chatState(s.chatSession()))
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	var req chatSendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	session := s.chatSession()
	reply, err := session.Send(r.Context(), req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatSendResponse{
		Envelope: analysis.Envelope{Success: true},
		Reply:    reply,
		Context:  session.Context(),
	})
}

func (s *Server) handleChatReset(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, chatState(s.chatSession()))
}

func (s *Server) handleChatProfile(w http.ResponseWriter, r *http.Request) {
	var req chatProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	session := s.chatSession()
	if _, err := session.SelectProfile(req.Name); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatState(session))
}

func (s *Server) handleChatApply(w http.ResponseWriter, r *http.Request) {
	var req chatApplyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	session := s.chatSession()
	draft := strings.TrimSpace(req.Draft)
	if draft == "" {
		draft, _ = session.LatestDraft()
	}

	reqs, err := session.Apply(r.Context(), draft, s.pipeline)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatApplyResponse{
		Envelope:     analysis.Envelope{Success: true, Message: "Job description analyzed successfully"},
		Requirements: reqs,
	})
}

func chatState(session *conversation.Session) chatStateResponse {
	return chatStateResponse{
		Envelope:  analysis.Envelope{Success: true},
		SessionID: session.ID,
		Context:   session.Context(),
		Messages:  session.Messages(),
		Profiles:  session.Profiles(),
		Pending:   session.Pending(),
		Closed:    session.Closed(),
	}
}
