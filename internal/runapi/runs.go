// internal/runapi/runs.go
package runapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/linnemanlabs/tandem/internal/discovery"
)

const defaultListLimit = 50

type submitRequest struct {
	Task    string `json:"task"`
	Disease string `json:"disease"`
}

type submitResponse struct {
	ID string `json:"id"`
}

func (a *API) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	res, err := a.svc.Submit(r.Context(), req.Task, req.Disease)
	if err != nil {
		if errors.Is(err, discovery.ErrEmptyTask) {
			http.Error(w, `{"error":"task must not be empty"}`, http.StatusBadRequest)
			return
		}
		a.logger.Error(r.Context(), err, "failed to submit run")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	a.logger.Info(r.Context(), "run accepted", "run_id", res.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(submitResponse{ID: res.ID})
}

func (a *API) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := a.svc.List(r.Context(), limit)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list runs")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	// Listings return summaries; the full report is fetched per run.
	summaries := make([]listEntry, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, listEntry{
			ID:      run.ID,
			State:   string(run.State),
			Summary: run.Summarize(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summaries)
}

type listEntry struct {
	ID      string             `json:"id"`
	State   string             `json:"state"`
	Summary *discovery.Summary `json:"summary"`
}
