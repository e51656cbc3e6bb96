package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/PhamBao-egn/BAOPHAM/internal/dispatch"
	"github.com/PhamBao-egn/BAOPHAM/internal/history"
)

// handleHealthz handles GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	st := s.tracker.Status()
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		GoalID:        st.GoalID,
		Phase:         st.Phase.String(),
		Outcome:       st.Outcome.String(),
		Done:          st.Phase == dispatch.PhaseDone,
	})
}

// handleListGoals handles GET /goals?limit=N.
func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	goals, err := s.config.History.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list goals", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list goals")
		return
	}
	if goals == nil {
		goals = []*history.Entry{}
	}
	respondJSON(w, http.StatusOK, GoalListResponse{Goals: goals})
}

// handleGetGoal handles GET /goals/{goalID}.
func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")

	entry, err := s.config.History.Get(r.Context(), goalID)
	if errors.Is(err, history.ErrGoalNotFound) {
		s.writeError(w, http.StatusNotFound, "goal not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get goal", "goal_id", goalID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get goal")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
