package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"ridesync/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(store TripStore) *gin.Engine {
	return NewRouter(RouterDeps{
		TripHandler: NewTripHandler(store, 10*time.Millisecond),
	})
}

func createBody() []byte {
	body, _ := json.Marshal(map[string]any{
		"passenger_id":        "passenger-1",
		"origin_address":      "Av. Reforma 100",
		"origin_lat":          19.4326,
		"origin_lng":          -99.1332,
		"destination_address": "Av. Insurgentes 500",
		"destination_lat":     19.3910,
		"destination_lng":     -99.1710,
		"payment_method":      "cash",
	})
	return body
}

func postJSON(router *gin.Engine, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func getPath(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestCreateTrip_ReportsLocalizedStatus(t *testing.T) {
	t.Parallel()

	router := testRouter(NewMemoryStore())
	w := postJSON(router, "/v1/trips", createBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var rec domain.TripRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != "solicitado" {
		t.Errorf("status token = %q, want %q", rec.Status, "solicitado")
	}
	if rec.ID == "" {
		t.Error("the created trip must carry an ID")
	}
}

func TestCreateTrip_SameAddressRejected(t *testing.T) {
	t.Parallel()

	body, _ := json.Marshal(map[string]any{
		"passenger_id":        "passenger-1",
		"origin_address":      "Av. Reforma 100",
		"destination_address": "av. reforma 100",
		"payment_method":      "cash",
	})

	router := testRouter(NewMemoryStore())
	w := postJSON(router, "/v1/trips", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error == "" || !bytes.Contains([]byte(resp.Error), []byte(domain.MsgSameAddress)) {
		t.Errorf("error %q should contain %q", resp.Error, domain.MsgSameAddress)
	}
}

func TestGetTrip_NotFound(t *testing.T) {
	t.Parallel()

	router := testRouter(NewMemoryStore())
	w := getPath(router, "/v1/trips/nope")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCancelTrip_Conflict(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	trip := &domain.Trip{
		ID:          "trip-1",
		PassengerID: "passenger-1",
		Origin:      domain.Location{Address: "A"},
		Destination: domain.Location{Address: "B"},
		Status:      domain.TripStatusCompleted,
	}
	if err := store.Create(context.Background(), trip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	router := testRouter(store)
	w := postJSON(router, "/v1/trips/trip-1/cancel", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestSelectDriver_FlipsToAcceptedAfterDelay(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	trip := &domain.Trip{
		ID:          "trip-1",
		PassengerID: "passenger-1",
		Origin:      domain.Location{Address: "A"},
		Destination: domain.Location{Address: "B"},
		Status:      domain.TripStatusRequested,
	}
	if err := store.Create(context.Background(), trip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, _ := json.Marshal(map[string]string{"driver_id": "driver-ana"})
	router := testRouter(store)

	w := postJSON(router, "/v1/trips/trip-1/driver", body)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		stored, err := store.GetByID(context.Background(), "trip-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stored.Status == domain.TripStatusAccepted {
			if stored.DriverID != "driver-ana" {
				t.Errorf("driver = %q, want driver-ana", stored.DriverID)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("the trip never flipped to accepted")
}

func TestSelectDriver_UnknownDriver(t *testing.T) {
	t.Parallel()

	body, _ := json.Marshal(map[string]string{"driver_id": "driver-nadie"})
	router := testRouter(NewMemoryStore())

	w := postJSON(router, "/v1/trips/trip-1/driver", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListDrivers(t *testing.T) {
	t.Parallel()

	router := testRouter(NewMemoryStore())
	w := getPath(router, "/v1/drivers/available")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var drivers []*domain.DriverCandidate
	if err := json.Unmarshal(w.Body.Bytes(), &drivers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drivers) != 3 {
		t.Errorf("expected 3 seeded drivers, got %d", len(drivers))
	}
}

func TestRateTrip_RequiresCompletedTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	trip := &domain.Trip{
		ID:          "trip-1",
		PassengerID: "passenger-1",
		Origin:      domain.Location{Address: "A"},
		Destination: domain.Location{Address: "B"},
		Status:      domain.TripStatusInProgress,
	}
	if err := store.Create(context.Background(), trip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, _ := json.Marshal(map[string]any{"rating": 5})
	router := testRouter(store)

	w := postJSON(router, "/v1/trips/trip-1/rate", body)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}
