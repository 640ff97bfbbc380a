package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pollsphere/pollsphere/internal/apperror"
	"github.com/pollsphere/pollsphere/internal/auth"
	"github.com/pollsphere/pollsphere/internal/model"
	"github.com/pollsphere/pollsphere/internal/service"
)

// PollHandler serves poll listing, creation and voting.
type PollHandler struct {
	polls  *service.PollService
	logger *slog.Logger
}

func NewPollHandler(polls *service.PollService, logger *slog.Logger) *PollHandler {
	return &PollHandler{polls: polls, logger: logger}
}

// HandleList returns active polls, newest first.
//
// HTTP: GET /api/polls?limit=20&skip=0
func (h *PollHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	skip, err := queryInt(r, "skip")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	polls, err := h.polls.List(r.Context(), limit, skip)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, polls)
}

// HandleGet returns one poll.
//
// HTTP: GET /api/polls/{id}
func (h *PollHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	poll, err := h.polls.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, poll)
}

// HandleCreate stores a new poll.
//
// HTTP: POST /api/polls?user_id=<creator>
// REQUEST BODY: {"title": "...", "description": "...", "options": [...], "tags": [...]}
//
// The creator travels as a query parameter, not in the body. That is the
// contract existing clients speak.
func (h *PollHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if err := requireActor(r, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req model.CreatePollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	poll, err := h.polls.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, poll)
}

// HandleVote records a vote.
//
// HTTP: POST /api/vote
// REQUEST BODY: {"poll_id": "...", "option_id": "...", "user_id": "..."}
// RESPONSE: {"message": "Vote recorded successfully", "total_votes": 12}
func (h *PollHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	var req model.VoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := requireActor(r, req.UserID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.polls.Vote(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// requireActor rejects a request whose token belongs to someone other than
// the user it acts for. Requests without a token pass unchanged.
func requireActor(r *http.Request, userID string) error {
	tokenUser, ok := auth.UserIDFromContext(r.Context())
	if !ok || tokenUser == userID {
		return nil
	}
	return apperror.Forbidden("token does not match user_id")
}
