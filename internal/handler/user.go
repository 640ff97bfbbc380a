package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pollsphere/pollsphere/internal/service"
)

// UserHandler serves the read-only user views: profile, achievements and the
// leaderboard.
type UserHandler struct {
	auth         *service.AuthService
	achievements *service.AchievementService
	leaderboard  *service.LeaderboardService
	logger       *slog.Logger
}

func NewUserHandler(
	authSvc *service.AuthService,
	achievements *service.AchievementService,
	leaderboard *service.LeaderboardService,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		auth:         authSvc,
		achievements: achievements,
		leaderboard:  leaderboard,
		logger:       logger,
	}
}

// HandleProfile returns a user's public record.
//
// HTTP: GET /api/users/{id}/profile
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleAchievements lists a user's achievements, newest first.
//
// HTTP: GET /api/users/{id}/achievements
func (h *UserHandler) HandleAchievements(w http.ResponseWriter, r *http.Request) {
	list, err := h.achievements.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleLeaderboard ranks users by XP.
//
// HTTP: GET /api/leaderboard?limit=10
func (h *UserHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	entries, err := h.leaderboard.Top(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
