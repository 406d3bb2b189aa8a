package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/huangsam/apprank/core"
	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
	"github.com/sirupsen/logrus"
)

type handler struct {
	store contract.RankStore
	topK  int
	limit int
	now   func() time.Time
	log   logrus.FieldLogger
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getSummary returns the top gainers and top overall of a date.
func (h *handler) getSummary(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r, r.URL.Query().Get("date"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	topK, err := intParam(r, "top_k", h.topK, contract.MaxTopK)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	summary, err := core.SummaryForDate(r.Context(), h.store, date, topK)
	if err != nil {
		h.serverError(w, "Failed to get summary", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"date":    schema.FormatDate(date),
		"summary": summary,
	})
}

// getStatistics returns statistics rows of a date ordered by current rank.
func (h *handler) getStatistics(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r, r.URL.Query().Get("date"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	limit, err := intParam(r, "limit", h.limit, contract.MaxResultLimit)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	rows, err := h.store.StatisticsForDate(r.Context(), date)
	if err != nil {
		h.serverError(w, "Failed to get statistics", err)
		return
	}
	total := len(rows)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"date":       schema.FormatDate(date),
		"total":      total,
		"statistics": rows,
	})
}

// getHistory returns every recorded rank of an entity, oldest first.
func (h *handler) getHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	facts, err := h.store.EntityHistory(r.Context(), id)
	if err != nil {
		h.serverError(w, "Failed to get entity history", err)
		return
	}
	if len(facts) == 0 {
		respondWithError(w, http.StatusNotFound, "Entity not found", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"entity_id": id,
		"history":   facts,
	})
}

// getSnapshot returns the archived payload of a date verbatim.
func (h *handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	date, err := schema.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	snap, err := h.store.GetSnapshot(r.Context(), date)
	if err != nil {
		if errors.Is(err, contract.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Snapshot not found", nil)
			return
		}
		h.serverError(w, "Failed to get snapshot", err)
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

// dateParam parses raw, defaulting to the latest date with statistics or today.
func (h *handler) dateParam(r *http.Request, raw string) (time.Time, error) {
	if raw != "" {
		return schema.ParseDate(raw)
	}
	status, err := h.store.GetStatus(r.Context())
	if err == nil && !status.LatestStatDate.IsZero() {
		return status.LatestStatDate, nil
	}
	return schema.Today(h.now(), time.UTC), nil
}

func intParam(r *http.Request, name string, def, maxValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 || v > maxValue {
		return 0, errors.New("invalid " + name + ": must be between 1 and " + strconv.Itoa(maxValue))
	}
	return v, nil
}

func (h *handler) serverError(w http.ResponseWriter, message string, err error) {
	h.log.WithError(err).Error(message)
	respondWithError(w, http.StatusInternalServerError, message, err)
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError writes {"error": message}; details of server errors stay in the log.
func respondWithError(w http.ResponseWriter, code int, message string, _ error) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
