package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-dialogue/internal/dialogue"
)

// Outcome error codes, reported alongside a failed or re-requesting turn.
const (
	OutcomeUnknownLocation = "unknown_location"
	OutcomeNoMatch         = "no_matching_devices"
	OutcomeAmbiguous       = "ambiguous_match"
	OutcomeInvalid         = "invalid_input"
)

// startRequest opens a conversation. A non-empty Input is played as the
// first turn.
type startRequest struct {
	Form        string         `json:"form"`
	SatelliteID string         `json:"satellite_id"`
	Input       dialogue.Input `json:"input"`
}

type confirmRequest struct {
	Confirm bool `json:"confirm"`
}

// replyResponse is a dialogue.Reply with the user-facing message and the
// outcome error code flattened out.
type replyResponse struct {
	dialogue.Reply
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
}

func newReplyResponse(r dialogue.Reply) replyResponse {
	return replyResponse{
		Reply:     r,
		Message:   r.Message(),
		ErrorCode: outcomeCode(r.Outcome.Err),
	}
}

// outcomeCode names a recoverable turn error for API clients.
func outcomeCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, dialogue.ErrUnknownLocation):
		return OutcomeUnknownLocation
	case errors.Is(err, dialogue.ErrNoMatchingDevices):
		return OutcomeNoMatch
	case errors.Is(err, dialogue.ErrAmbiguousMatch):
		return OutcomeAmbiguous
	default:
		return OutcomeInvalid
	}
}

// startConversation opens a conversation and plays in as its first turn
// when it carries anything.
func startConversation(ctx context.Context, svc *dialogue.Service, form, satelliteID string, in dialogue.Input) (dialogue.Reply, error) {
	conv, err := svc.Start(ctx, form, satelliteID)
	if err != nil {
		return dialogue.Reply{}, err
	}
	if !in.IsZero() {
		return svc.Turn(ctx, conv.ID, in)
	}

	// Nothing heard yet: ask for the form's first slot.
	f, err := dialogue.FormByName(conv.Form)
	if err != nil {
		return dialogue.Reply{}, err
	}
	var first string
	if len(f.Rules) > 0 {
		first = f.Rules[0].Slot
	}
	return dialogue.Reply{
		Conversation: conv,
		Outcome: dialogue.Outcome{
			Status:    dialogue.StatusRequest,
			Slots:     conv.Slots,
			Requested: first,
			Message:   dialogue.Prompt(first),
		},
	}, nil
}

// handleStartConversation opens a conversation.
func (s *Server) handleStartConversation(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	reply, err := startConversation(r.Context(), s.dialogue, req.Form, req.SatelliteID, req.Input)
	if err != nil {
		writeDialogueError(w, err)
		return
	}

	s.logger.Info("conversation started",
		"conversation_id", reply.Conversation.ID,
		"form", reply.Conversation.Form,
		"satellite_id", reply.Conversation.SatelliteID,
	)
	writeJSON(w, http.StatusCreated, newReplyResponse(reply))
}

// handleGetConversation returns a conversation's current slots.
func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.dialogue.Sessions().Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDialogueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// handleTurn feeds one user input into a conversation.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var in dialogue.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	reply, err := s.dialogue.Turn(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeDialogueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReplyResponse(reply))
}

// handleConfirm answers a confirmation question.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	reply, err := s.dialogue.Confirm(r.Context(), chi.URLParam(r, "id"), req.Confirm)
	if err != nil {
		writeDialogueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReplyResponse(reply))
}

// handleSubmit executes a resolved conversation.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	reply, err := s.dialogue.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDialogueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newReplyResponse(reply))
}

// handleEndConversation forgets a conversation.
func (s *Server) handleEndConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.dialogue.End(chi.URLParam(r, "id")); err != nil {
		writeDialogueError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
