package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"bookflow/internal/metrics"
	"bookflow/internal/models"
)

// QuoteRequest is the request body for POST /api/quotes.
type QuoteRequest struct {
	ResourceType string `json:"resource_type"`
	ResourceID   int64  `json:"resource_id"`
	StartsAt     string `json:"starts_at"` // RFC 3339
	EndsAt       string `json:"ends_at"`   // RFC 3339
	ServiceType  string `json:"service_type,omitempty"`
}

// QuoteResponse is one priced rate for the requested window.
type QuoteResponse struct {
	RateID    int64   `json:"rate_id"`
	RateName  string  `json:"rate_name"`
	Unit      string  `json:"unit"`
	Units     int     `json:"units"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// handleQuotes prices a window against every matching rate.
// POST /api/quotes
func (s *HTTPServer) handleQuotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req QuoteRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	startsAt, endsAt, ok := parseWindow(w, req.StartsAt, req.EndsAt)
	if !ok {
		return
	}
	if !startsAt.Before(endsAt) {
		writeError(w, http.StatusBadRequest, "starts_at must be before ends_at")
		return
	}

	resource := models.ResourceRef{Type: req.ResourceType, ID: req.ResourceID}
	quotes, err := s.checker.FindPrices(r.Context(), resource, startsAt, endsAt, req.ServiceType)
	if err != nil {
		s.logger.Error().Err(err).Str("resource", resource.String()).Msg("quote lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	metrics.IncQuote()

	out := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, QuoteResponse{
			RateID:    q.Rate.ID,
			RateName:  q.Rate.Name,
			Unit:      string(q.Rate.Unit),
			Units:     q.Units,
			UnitPrice: q.UnitPrice,
			Total:     q.Total,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotes": out})
}

// SlotResponse is one bookable window under a rate.
type SlotResponse struct {
	RateID   int64     `json:"rate_id"`
	RateName string    `json:"rate_name"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// handleSlots lists available time slots for a resource on a date.
// GET /api/slots?resource_type=&resource_id=&date=YYYY-MM-DD&duration_minutes=&service_type=
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	q := r.URL.Query()
	resourceID, err := strconv.ParseInt(q.Get("resource_id"), 10, 64)
	if err != nil || q.Get("resource_type") == "" {
		writeError(w, http.StatusBadRequest, "resource_type and resource_id are required")
		return
	}

	date, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}

	durationMinutes := 60
	if raw := q.Get("duration_minutes"); raw != "" {
		durationMinutes, err = strconv.Atoi(raw)
		if err != nil || durationMinutes <= 0 {
			writeError(w, http.StatusBadRequest, "invalid duration_minutes")
			return
		}
	}

	resource := models.ResourceRef{Type: q.Get("resource_type"), ID: resourceID}
	slots, err := s.checker.FindAvailableTimeSlots(r.Context(), resource, date,
		time.Duration(durationMinutes)*time.Minute, q.Get("service_type"), nil)
	if err != nil {
		s.logger.Error().Err(err).Str("resource", resource.String()).Msg("slot lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]SlotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, SlotResponse{
			RateID:   slot.Rate.ID,
			RateName: slot.Rate.Name,
			StartsAt: slot.Window.Start,
			EndsAt:   slot.Window.End,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": out})
}

// handleBookingsReport streams an Excel export of bookings in a range.
// GET /api/reports/bookings?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleBookingsReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusNotFound, "reporting is disabled")
		return
	}

	q := r.URL.Query()
	from, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from; expected YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to; expected YYYY-MM-DD")
		return
	}
	if from.After(to) {
		writeError(w, http.StatusBadRequest, "from must not be after to")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.xlsx"`)
	if err := s.exporter.Export(r.Context(), from, to.AddDate(0, 0, 1), w); err != nil {
		s.logger.Error().Err(err).Msg("report export failed")
	}
}
