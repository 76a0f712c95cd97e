package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookflow/internal/admission"
	"bookflow/internal/availability"
	"bookflow/internal/database"
	"bookflow/internal/events"
	"bookflow/internal/models"
	"bookflow/internal/pricing"
	"bookflow/internal/recurring"
	"bookflow/internal/report"
)

type testEnv struct {
	db      *database.DB
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), 1, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	registry := pricing.DefaultRegistry()
	checker := availability.NewChecker(db, db, db, registry, &logger)
	admitter := admission.NewService(db, db, checker, registry, admission.NewKeyedMutex(), events.NewBus(), &logger)
	generator := recurring.NewGenerator(db, admitter, &logger)
	exporter := report.NewExporter(db)

	server := NewHTTPServer(admitter, checker, generator, exporter, db, 1000, 1000, &logger)
	return &testEnv{db: db, handler: server.Handler()}
}

func (e *testEnv) seedRate(t *testing.T, price float64) int64 {
	t.Helper()
	p := price
	rate := &models.Rate{
		Name:         "hourly",
		Price:        &p,
		Unit:         models.UnitHour,
		MinimumUnits: 1,
		ResourceType: "room",
		ResourceID:   1,
	}
	id, err := e.db.CreateRate(context.Background(), rate)
	require.NoError(t, err)
	return id
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func bookingBody(rateID int64, start time.Time) map[string]any {
	return map[string]any{
		"resource_type": "room",
		"resource_id":   1,
		"customer_type": "customer",
		"customer_id":   7,
		"rate_id":       rateID,
		"starts_at":     start.Format(time.RFC3339),
		"ends_at":       start.Add(2 * time.Hour).Format(time.RFC3339),
		"quantity":      1,
	}
}

func TestCreateBooking(t *testing.T) {
	env := newTestEnv(t)
	rateID := env.seedRate(t, 50)
	start := time.Date(2026, time.January, 12, 10, 0, 0, 0, time.UTC)

	rec := env.do(t, http.MethodPost, "/api/bookings", bookingBody(rateID, start))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotZero(t, resp.ID)
	assert.NotEmpty(t, resp.Reference)
	assert.Equal(t, "room/1", resp.Resource)
	assert.Equal(t, "confirmed", resp.Status)
	assert.Equal(t, 100.0, resp.Total)
}

func TestCreateBookingCapacityConflict(t *testing.T) {
	env := newTestEnv(t)
	rateID := env.seedRate(t, 50)
	start := time.Date(2026, time.January, 12, 10, 0, 0, 0, time.UTC)

	rec := env.do(t, http.MethodPost, "/api/bookings", bookingBody(rateID, start))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/bookings", bookingBody(rateID, start))
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp RejectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "capacity_exceeded", resp.Reason)
	assert.Equal(t, "Booking exceeds capacity. Available: 0, Requested: 1", resp.Error)
	require.NotNil(t, resp.Available)
	assert.Equal(t, 0, *resp.Available)
}

func TestCreateBookingValidationRejection(t *testing.T) {
	env := newTestEnv(t)
	rateID := env.seedRate(t, 50)
	start := time.Date(2026, time.January, 12, 10, 0, 0, 0, time.UTC)

	body := bookingBody(rateID, start)
	body["ends_at"] = start.Add(-time.Hour).Format(time.RFC3339)
	rec := env.do(t, http.MethodPost, "/api/bookings", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp RejectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_time_range", resp.Reason)
}

// An explicit zero quantity is rejected by the pipeline; only an absent
// quantity field defaults to 1.
func TestCreateBookingQuantityDefaulting(t *testing.T) {
	env := newTestEnv(t)
	rateID := env.seedRate(t, 50)
	start := time.Date(2026, time.January, 12, 10, 0, 0, 0, time.UTC)

	body := bookingBody(rateID, start)
	body["quantity"] = 0
	rec := env.do(t, http.MethodPost, "/api/bookings", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp RejectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_quantity", resp.Reason)

	body = bookingBody(rateID, start)
	delete(body, "quantity")
	rec = env.do(t, http.MethodPost, "/api/bookings", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 1, created.Quantity)
}

func TestCreateBookingBadRequests(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/bookings", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewBufferString("{not json"))
	req.RemoteAddr = "192.0.2.1:1234"
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := map[string]any{"resource_type": "room", "resource_id": 1, "rate_id": 1, "starts_at": "yesterday", "ends_at": "tomorrow"}
	rec = env.do(t, http.MethodPost, "/api/bookings", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelBooking(t *testing.T) {
	env := newTestEnv(t)
	rateID := env.seedRate(t, 50)
	start := time.Date(2026, time.January, 12, 10, 0, 0, 0, time.UTC)

	rec := env.do(t, http.MethodPost, "/api/bookings", bookingBody(rateID, start))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, http.MethodDelete, "/api/bookings/"+strconv.FormatInt(created.ID, 10), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/bookings/404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/bookings/notanumber", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Capacity freed, same window admits again.
	rec = env.do(t, http.MethodPost, "/api/bookings", bookingBody(rateID, start))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestQuotes(t *testing.T) {
	env := newTestEnv(t)
	env.seedRate(t, 50)
	start := time.Date(2026, time.January, 12, 10, 0, 0, 0, time.UTC)

	rec := env.do(t, http.MethodPost, "/api/quotes", map[string]any{
		"resource_type": "room",
		"resource_id":   1,
		"starts_at":     start.Format(time.RFC3339),
		"ends_at":       start.Add(2 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Quotes []QuoteResponse `json:"quotes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Quotes, 1)
	assert.Equal(t, 2, resp.Quotes[0].Units)
	assert.Equal(t, 100.0, resp.Quotes[0].Total)
}

func TestSlots(t *testing.T) {
	env := newTestEnv(t)
	price := 50.0
	rate := &models.Rate{
		Name:         "daytime",
		Price:        &price,
		Unit:         models.UnitHour,
		StartsAt:     todPtr(9, 0),
		EndsAt:       todPtr(12, 0),
		MinimumUnits: 1,
		ResourceType: "room",
		ResourceID:   1,
	}
	_, err := env.db.CreateRate(context.Background(), rate)
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/slots?resource_type=room&resource_id=1&date=2026-01-12&duration_minutes=60", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Slots []SlotResponse `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// 09:00 through 11:00 starts in 30-minute strides.
	assert.Len(t, resp.Slots, 5)

	rec = env.do(t, http.MethodGet, "/api/slots?resource_type=room&resource_id=1&date=bad", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecurringEndpoints(t *testing.T) {
	env := newTestEnv(t)
	rateID := env.seedRate(t, 50)

	body := map[string]any{
		"resource_type": "room",
		"resource_id":   1,
		"customer_type": "customer",
		"customer_id":   7,
		"rate_id":       rateID,
		"start_time":    "10:00",
		"end_time":      "11:00",
		"days_of_week":  []int{1},
		"starts_from":   "2026-01-12",
		"ends_at":       "2026-02-01",
	}
	rec := env.do(t, http.MethodPost, "/api/recurring", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Conflicting template is refused.
	rec = env.do(t, http.MethodPost, "/api/recurring", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/recurring/"+strconv.FormatInt(created.ID, 10)+"/generate",
		map[string]any{"until": "2026-02-28"})
	require.Equal(t, http.StatusOK, rec.Code)

	var expansion struct {
		Created []BookingResponse `json:"created"`
		Skipped []map[string]any  `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &expansion))
	assert.Len(t, expansion.Created, 3)
	assert.Empty(t, expansion.Skipped)

	rec = env.do(t, http.MethodDelete, "/api/recurring/"+strconv.FormatInt(created.ID, 10), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBookingsReport(t *testing.T) {
	env := newTestEnv(t)
	rateID := env.seedRate(t, 50)
	start := time.Date(2026, time.January, 12, 10, 0, 0, 0, time.UTC)

	rec := env.do(t, http.MethodPost, "/api/bookings", bookingBody(rateID, start))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/reports/bookings?from=2026-01-12&to=2026-01-13", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotZero(t, rec.Body.Len())

	rec = env.do(t, http.MethodGet, "/api/reports/bookings?from=bad&to=2026-01-13", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "rl.db"), 1, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	registry := pricing.DefaultRegistry()
	checker := availability.NewChecker(db, db, db, registry, &logger)
	admitter := admission.NewService(db, db, checker, registry, admission.NewKeyedMutex(), events.NewBus(), &logger)
	server := NewHTTPServer(admitter, checker, nil, nil, db, 1, 1, &logger)
	handler := server.Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "192.0.2.5:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different client has its own bucket.
	other := httptest.NewRequest(http.MethodGet, "/health", nil)
	other.RemoteAddr = "192.0.2.6:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func todPtr(hour, minute int) *models.TimeOfDay {
	t := models.TimeOfDay{Hour: hour, Minute: minute}
	return &t
}
