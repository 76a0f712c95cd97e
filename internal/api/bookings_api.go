package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookflow/internal/admission"
	"bookflow/internal/models"
)

// BookingRequest is the request body for POST /api/bookings.
type BookingRequest struct {
	ResourceType string `json:"resource_type"`
	ResourceID   int64  `json:"resource_id"`
	CustomerType string `json:"customer_type,omitempty"`
	CustomerID   int64  `json:"customer_id,omitempty"`
	RateID       int64  `json:"rate_id"`
	StartsAt     string `json:"starts_at"` // RFC 3339
	EndsAt       string `json:"ends_at"`   // RFC 3339
	Quantity     *int   `json:"quantity"`  // nil defaults to 1; 0 is rejected
	ServiceType  string `json:"service_type,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// BookingResponse is the booking as the API renders it.
type BookingResponse struct {
	ID          int64     `json:"id"`
	Reference   string    `json:"reference"`
	Resource    string    `json:"resource"`
	Customer    string    `json:"customer,omitempty"`
	RateID      int64     `json:"rate_id"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Total       float64   `json:"total"`
	Status      string    `json:"status"`
	ServiceType string    `json:"service_type,omitempty"`
}

// RejectionResponse carries the typed rejection back to the client.
type RejectionResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason"`
	Available *int   `json:"available,omitempty"`
	Requested *int   `json:"requested,omitempty"`
}

func bookingResponse(b *models.Booking) BookingResponse {
	resp := BookingResponse{
		ID:          b.ID,
		Reference:   b.Reference,
		Resource:    b.Bookable().String(),
		RateID:      b.RateID,
		StartsAt:    b.StartsAt,
		EndsAt:      b.EndsAt,
		Price:       b.Price,
		Quantity:    b.Quantity,
		Total:       b.Total,
		Status:      string(b.Status),
		ServiceType: b.ServiceType,
	}
	if !b.Customer().IsZero() {
		resp.Customer = b.Customer().String()
	}
	return resp
}

// handleBookings admits a booking.
// POST /api/bookings
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req BookingRequest
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
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	booking, err := s.admitter.Admit(r.Context(), admission.Request{
		Bookable:    models.ResourceRef{Type: req.ResourceType, ID: req.ResourceID},
		Customer:    models.ResourceRef{Type: req.CustomerType, ID: req.CustomerID},
		RateID:      req.RateID,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		Quantity:    quantity,
		ServiceType: req.ServiceType,
		Notes:       req.Notes,
	})
	if err != nil {
		writeAdmissionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookingResponse(booking))
}

// handleBookingByID cancels a booking.
// DELETE /api/bookings/{id}
func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use DELETE")
		return
	}

	id, ok := pathID(w, r.URL.Path, "/api/bookings/")
	if !ok {
		return
	}

	if err := s.admitter.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, admission.ErrBookingNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		s.logger.Error().Err(err).Int64("booking_id", id).Msg("cancel failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeAdmissionError(w http.ResponseWriter, err error) {
	var admErr *admission.Error
	if !errors.As(err, &admErr) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := RejectionResponse{Error: admErr.Message, Reason: string(admErr.Reason)}
	status := http.StatusUnprocessableEntity
	if admErr.Reason == admission.ReasonCapacityExceeded {
		status = http.StatusConflict
		resp.Available = &admErr.Available
		resp.Requested = &admErr.Requested
	}
	writeJSON(w, status, resp)
}

func parseWindow(w http.ResponseWriter, starts, ends string) (time.Time, time.Time, bool) {
	startsAt, err := time.Parse(time.RFC3339, starts)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid starts_at; expected RFC 3339")
		return time.Time{}, time.Time{}, false
	}
	endsAt, err := time.Parse(time.RFC3339, ends)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ends_at; expected RFC 3339")
		return time.Time{}, time.Time{}, false
	}
	return startsAt, endsAt, true
}

func pathID(w http.ResponseWriter, path, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		writeError(w, http.StatusBadRequest, "invalid path")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
