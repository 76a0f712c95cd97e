package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"bookflow/internal/models"
	"bookflow/internal/recurring"
)

// RecurringRequest is the request body for POST /api/recurring.
type RecurringRequest struct {
	ResourceType string `json:"resource_type"`
	ResourceID   int64  `json:"resource_id"`
	CustomerType string `json:"customer_type,omitempty"`
	CustomerID   int64  `json:"customer_id,omitempty"`
	RateID       int64  `json:"rate_id"`
	StartTime    string `json:"start_time"` // HH:MM
	EndTime      string `json:"end_time"`   // HH:MM
	DaysOfWeek   []int  `json:"days_of_week"`
	StartsFrom   string `json:"starts_from"`       // YYYY-MM-DD
	EndsAt       string `json:"ends_at,omitempty"` // YYYY-MM-DD, empty = open-ended
	Quantity     int    `json:"quantity,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// GenerateRequest bounds one expansion run.
type GenerateRequest struct {
	Until string `json:"until"` // YYYY-MM-DD
}

// handleRecurring creates a recurring template.
// POST /api/recurring
func (s *HTTPServer) handleRecurring(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if s.generator == nil {
		writeError(w, http.StatusNotFound, "recurring bookings are disabled")
		return
	}

	var req RecurringRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	template, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.generator.CreateTemplate(r.Context(), template)
	if err != nil {
		if errors.Is(err, recurring.ErrTemplateConflict) {
			writeJSON(w, http.StatusConflict, map[string]any{"error": recurring.ErrTemplateConflict.Error()})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// handleRecurringByID expands or cancels a template.
// POST /api/recurring/{id}/generate, DELETE /api/recurring/{id}
func (s *HTTPServer) handleRecurringByID(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		writeError(w, http.StatusNotFound, "recurring bookings are disabled")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/recurring/")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(rest, "/generate"):
		id, ok := pathID(w, strings.TrimSuffix(rest, "/generate"), "")
		if !ok {
			return
		}
		s.generateRecurring(w, r, id)
	case r.Method == http.MethodDelete:
		id, ok := pathID(w, rest, "")
		if !ok {
			return
		}
		if err := s.generator.CancelTemplate(r.Context(), id); err != nil {
			writeError(w, http.StatusNotFound, "template not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) generateRecurring(w http.ResponseWriter, r *http.Request, id int64) {
	var req GenerateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	until, err := time.Parse("2006-01-02", req.Until)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid until; expected YYYY-MM-DD")
		return
	}

	result, err := s.generator.Generate(r.Context(), id, until)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created := make([]BookingResponse, 0, len(result.Created))
	for i := range result.Created {
		created = append(created, bookingResponse(&result.Created[i]))
	}
	skipped := make([]map[string]any, 0, len(result.Skipped))
	for _, sk := range result.Skipped {
		skipped = append(skipped, map[string]any{
			"starts_at": sk.Window.Start,
			"ends_at":   sk.Window.End,
			"reason":    string(sk.Reason),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"created": created, "skipped": skipped})
}

func (r *RecurringRequest) toModel() (*models.RecurringBooking, error) {
	startTime, err := models.ParseTimeOfDay(r.StartTime)
	if err != nil {
		return nil, errors.New("invalid start_time; expected HH:MM")
	}
	endTime, err := models.ParseTimeOfDay(r.EndTime)
	if err != nil {
		return nil, errors.New("invalid end_time; expected HH:MM")
	}
	startsFrom, err := time.Parse("2006-01-02", r.StartsFrom)
	if err != nil {
		return nil, errors.New("invalid starts_from; expected YYYY-MM-DD")
	}

	var endsAt *time.Time
	if r.EndsAt != "" {
		parsed, err := time.Parse("2006-01-02", r.EndsAt)
		if err != nil {
			return nil, errors.New("invalid ends_at; expected YYYY-MM-DD")
		}
		endsAt = &parsed
	}

	days := make([]time.Weekday, 0, len(r.DaysOfWeek))
	for _, d := range r.DaysOfWeek {
		if d < 0 || d > 6 {
			return nil, errors.New("days_of_week values must be 0 (Sunday) through 6 (Saturday)")
		}
		days = append(days, time.Weekday(d))
	}

	return &models.RecurringBooking{
		RateID:       r.RateID,
		BookableType: r.ResourceType,
		BookableID:   r.ResourceID,
		CustomerType: r.CustomerType,
		CustomerID:   r.CustomerID,
		StartTime:    startTime,
		EndTime:      endTime,
		DaysOfWeek:   days,
		StartsFrom:   startsFrom,
		EndsAt:       endsAt,
		Quantity:     r.Quantity,
		Notes:        r.Notes,
	}, nil
}
