package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/KARTIK027-CODE/StubbleX/internal/models"
	"github.com/KARTIK027-CODE/StubbleX/internal/session"
	"github.com/KARTIK027-CODE/StubbleX/internal/store"
)

// BoardFetcher is the slice of the inference client the leaderboard
// needs.
type BoardFetcher interface {
	Leaderboard(ctx context.Context) (*models.Leaderboard, error)
}

// LeaderboardHandler proxies the green-score board from the model server
// and keeps the last good copy so an unreachable server degrades the
// board instead of erroring the page.
type LeaderboardHandler struct {
	Fetcher  BoardFetcher
	Sessions *session.Manager
	Store    *store.Store

	mu     sync.Mutex
	cached *models.Leaderboard
}

type leaderboardResponse struct {
	Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	UserRank    models.LeaderboardEntry   `json:"user_rank"`
	Stale       bool                      `json:"stale,omitempty"`
}

func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	board, stale := h.fetch(r.Context())
	if board == nil {
		writeError(w, http.StatusBadGateway, "Leaderboard is unavailable right now")
		return
	}

	resp := leaderboardResponse{
		Leaderboard: board.Leaderboard,
		UserRank:    board.UserRank,
		Stale:       stale,
	}

	// The board's "you" row comes from the model server's view; when we
	// know the caller, override it with locally computed green stats.
	if phone := h.Sessions.Phone(r); phone != "" {
		if stats, err := h.Store.GetGreenStats(phone); err == nil {
			resp.UserRank.Name = "You"
			resp.UserRank.GreenScore = stats.GreenScore
			resp.UserRank.CO2Saved = fmt.Sprintf("%.1f Tons", stats.CO2SavedKg/1000)
			resp.UserRank.WasteRecycled = fmt.Sprintf("%.0f Tons", stats.TonsSold)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// fetch returns the freshest board available and whether it is a cached
// copy.
func (h *LeaderboardHandler) fetch(ctx context.Context) (*models.Leaderboard, bool) {
	board, err := h.Fetcher.Leaderboard(ctx)
	if err == nil {
		h.mu.Lock()
		h.cached = board
		h.mu.Unlock()
		return board, false
	}

	slog.Warn("Leaderboard fetch failed, serving cached copy", "error", err)
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cached, h.cached != nil
}
