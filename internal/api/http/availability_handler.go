package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"loandesk-backend/internal/domain"
)

type availabilityCheckRequest struct {
	AssetIDs             []int32 `json:"asset_ids"`
	StartDate            string  `json:"start_date"`
	EndDate              string  `json:"end_date"`
	ExcludeApplicationID *int32  `json:"exclude_application_id,omitempty"`
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest)
		return
	}
	start, err := parseDate(req.StartDate, "start_date")
	if err != nil {
		writeError(w, err)
		return
	}
	end, err := parseDate(req.EndDate, "end_date")
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.availability.CheckAvailability(r.Context(), req.AssetIDs, start, end, req.ExcludeApplicationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"availability": result})
}

func (h *Handler) GetAvailabilityCalendar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	start, err := parseDate(r.URL.Query().Get("start"), "start")
	if err != nil {
		writeError(w, err)
		return
	}
	end, err := parseDate(r.URL.Query().Get("end"), "end")
	if err != nil {
		writeError(w, err)
		return
	}
	cal, err := h.availability.GetAvailabilityCalendar(r.Context(), id, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

func (h *Handler) GetAlternativeAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseDate(q.Get("start"), "start")
	if err != nil {
		writeError(w, err)
		return
	}
	end, err := parseDate(q.Get("end"), "end")
	if err != nil {
		writeError(w, err)
		return
	}
	limit := 5
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	assets, err := h.availability.GetAlternativeAssets(r.Context(), q.Get("category"), start, end, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"assets": assets})
}

func (h *Handler) GetUtilizationRate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			days = n
		}
	}
	rate, err := h.availability.CalculateUtilizationRate(r.Context(), id, days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"asset_id":         id,
		"window_days":      days,
		"utilization_rate": rate,
	})
}
