package httpapi

import (
	"net/http"

	"github.com/meepleai/gateway/answercache"
	"github.com/meepleai/gateway/observe"
)

// invalidateResponse reports how many entries an invalidation removed.
type invalidateResponse struct {
	Invalidated int `json:"invalidated"`
}

// handleCacheStats serves answer-cache statistics, optionally scoped
// to one game via ?gameId=.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("gameId")
	if gameID != "" {
		if err := answercache.ValidateTarget(gameID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_invalidation_target", "game identifier is malformed")
			return
		}
	}
	writeJSON(w, http.StatusOK, s.cache.Stats(gameID))
}

func (s *Server) handleInvalidateGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameID")
	if err := answercache.ValidateTarget(gameID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_invalidation_target", "game identifier is malformed")
		return
	}

	removed := s.cache.InvalidateByGame(gameID)
	s.logger.Info(r.Context(), "cache invalidated by game",
		observe.Field{Key: "game_id", Value: gameID},
		observe.Field{Key: "removed", Value: removed})
	writeJSON(w, http.StatusOK, invalidateResponse{Invalidated: removed})
}

func (s *Server) handleInvalidateTag(w http.ResponseWriter, r *http.Request) {
	tag := r.PathValue("tag")
	if err := answercache.ValidateTarget(tag); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_invalidation_target", "tag is malformed")
		return
	}

	removed := s.cache.InvalidateByTag(tag)
	s.logger.Info(r.Context(), "cache invalidated by tag",
		observe.Field{Key: "tag", Value: tag},
		observe.Field{Key: "removed", Value: removed})
	writeJSON(w, http.StatusOK, invalidateResponse{Invalidated: removed})
}
