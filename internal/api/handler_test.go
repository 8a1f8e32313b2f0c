package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hemagenda-backend/config"
	"hemagenda-backend/internal/booking"
	"hemagenda-backend/internal/confirmation"
	"hemagenda-backend/internal/donor"
	"hemagenda-backend/internal/location"
	"hemagenda-backend/internal/model"
	"hemagenda-backend/internal/store"
	"hemagenda-backend/internal/upstream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testDonors = []model.Donor{
	{ID: 1, Name: "Ana Silva", RG: "123", BloodTypeID: 4},
	{ID: 2, Name: "Ana Souza", RG: "456", BloodTypeID: 1},
	{ID: 3, Name: "Bruno Lima", RG: "789", BloodTypeID: 2},
}

type fakeUpstream struct {
	mu          sync.Mutex
	locations   []model.DonationLocation
	deleteErr   error
	registered  [][2]int64
	stateCalls  int
	donations   map[int64][]model.Donation
	bloodTypes  map[int64]model.BloodType
	registerErr error
}

func (f *fakeUpstream) ListLocations(context.Context) ([]model.DonationLocation, error) {
	return f.locations, nil
}

func (f *fakeUpstream) UpdateLocation(context.Context, upstream.LocationUpdate) error {
	return nil
}

func (f *fakeUpstream) DeleteLocation(context.Context, int64) error {
	return f.deleteErr
}

func (f *fakeUpstream) GetLocation(_ context.Context, id int64) (model.DonationLocation, error) {
	for _, l := range f.locations {
		if l.ID == id {
			return l, nil
		}
	}
	return model.DonationLocation{}, &upstream.StatusError{Op: "get location", StatusCode: http.StatusNotFound}
}

func (f *fakeUpstream) GetBloodType(_ context.Context, id int64) (model.BloodType, error) {
	return f.bloodTypes[id], nil
}

func (f *fakeUpstream) Donors(context.Context) ([]model.Donor, error) {
	return testDonors, nil
}

func (f *fakeUpstream) DonationsByDonor(_ context.Context, id int64) ([]model.Donation, error) {
	return f.donations[id], nil
}

func (f *fakeUpstream) RegisterDonation(_ context.Context, donorID, locationID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, [2]int64{donorID, locationID})
	return f.registerErr
}

func (f *fakeUpstream) States(context.Context) ([]model.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateCalls++
	return []model.State{{ID: 1, Code: "PR"}}, nil
}

func (f *fakeUpstream) CitiesByState(_ context.Context, stateID int64) ([]model.City, error) {
	return []model.City{{ID: 10, Name: "Curitiba", StateID: stateID}}, nil
}

func (f *fakeUpstream) CityNames(_ context.Context, ids []int64) map[int64]string {
	return map[int64]string{10: "Curitiba"}
}

type fakeStore struct {
	mu            sync.Mutex
	confirmations map[string]*model.Confirmation
	subscriptions map[string]*model.PushSubscription
	saveErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		confirmations: map[string]*model.Confirmation{},
		subscriptions: map[string]*model.PushSubscription{},
	}
}

func (s *fakeStore) SaveConfirmation(_ context.Context, c *model.Confirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.confirmations[c.ID] = c
	return nil
}

func (s *fakeStore) GetConfirmation(_ context.Context, id string) (*model.Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.confirmations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (s *fakeStore) ListConfirmationsByDonor(context.Context, int64) ([]model.Confirmation, error) {
	return nil, nil
}

func (s *fakeStore) UpsertSubscription(_ context.Context, sub *model.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.Endpoint] = sub
	return nil
}

func (s *fakeStore) GetSubscription(_ context.Context, endpoint string) (*model.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[endpoint]
	if !ok {
		return nil, store.ErrNotFound
	}
	return sub, nil
}

func (s *fakeStore) DeleteSubscription(_ context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, endpoint)
	return nil
}

func (s *fakeStore) SubscriptionsForDonor(context.Context, int64) ([]model.PushSubscription, error) {
	return nil, nil
}

type testEnv struct {
	router   *gin.Engine
	handler  *Handler
	upstream *fakeUpstream
	store    *fakeStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	up := &fakeUpstream{
		locations: []model.DonationLocation{
			{ID: 1, Name: "B", CityID: 10, UpdatedAt: "2024-01-01T00:00:00Z"},
			{ID: 2, Name: "A", CityID: 10, UpdatedAt: "2024-02-01T00:00:00Z"},
		},
		donations:  map[int64][]model.Donation{1: {{ID: 5, DonorID: 1, LocationID: 2}}},
		bloodTypes: map[int64]model.BloodType{4: {ID: 4, Type: "O", Factor: "+"}},
	}
	st := newFakeStore()

	handler := NewHandler(Deps{
		Store:     st,
		Locations: location.NewService(up, up, 6),
		Reference: up,
		Donors:    up,
		Lookup:    donor.NewLookup(up, up),
		Booking:   booking.NewFlow(up, up, st, nil),
		Cards:     confirmation.NewResolver(up, time.UTC),
		ShareBase: "https://wa.me/",
		Webpush:   &webpush.Options{VAPIDPublicKey: "public-key"},
	})
	router := NewRouter(config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 60}, handler)
	return &testEnv{router: router, handler: handler, upstream: up, store: st}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestDeleteLocation(t *testing.T) {
	testCases := []struct {
		name         string
		path         string
		deleteErr    error
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success",
			path:         "/api/locations/1",
			expectedCode: http.StatusOK,
			expectedBody: `{"message":"Donation location deleted successfully!"}`,
		},
		{
			name:         "Referenced by donations",
			path:         "/api/locations/1",
			deleteErr:    &upstream.StatusError{Op: "delete donation location", StatusCode: http.StatusBadRequest},
			expectedCode: http.StatusConflict,
			expectedBody: `{"error":"This location has donors registered and cannot be deleted."}`,
		},
		{
			name:         "Upstream server error",
			path:         "/api/locations/1",
			deleteErr:    &upstream.StatusError{Op: "delete donation location", StatusCode: http.StatusInternalServerError},
			expectedCode: http.StatusBadGateway,
			expectedBody: `{"error":"Failed to delete donation location."}`,
		},
		{
			name:         "Transport failure",
			path:         "/api/locations/1",
			deleteErr:    errors.New("connection refused"),
			expectedCode: http.StatusBadGateway,
			expectedBody: `{"error":"Failed to delete donation location."}`,
		},
		{
			name:         "Bad id",
			path:         "/api/locations/abc",
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"invalid id"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.upstream.deleteErr = tc.deleteErr

			w := env.do(http.MethodDelete, tc.path, nil)
			assert.Equal(t, tc.expectedCode, w.Code)
			assert.JSONEq(t, tc.expectedBody, w.Body.String())
		})
	}
}

func TestGetLocations(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/locations?sort=name", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listing location.Listing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Len(t, listing.Items, 2)
	assert.Equal(t, "A", listing.Items[0].Name)
	assert.Equal(t, "Curitiba", listing.Items[0].CityName)
	assert.Equal(t, 1, listing.TotalPages)

	w = env.do(http.MethodGet, "/api/locations?q=b", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Len(t, listing.Items, 1)
	assert.Equal(t, int64(1), listing.Items[0].ID)
}

func TestUpdateLocation_InvalidForm(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPatch, "/api/locations/1", map[string]any{"nome": "", "cidade_id": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Please fill in all required fields"}`, w.Body.String())
}

func TestSearchDonor(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/donors/search?q=", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Please enter a valid name"}`, w.Body.String())

	w = env.do(http.MethodGet, "/api/donors/search?q=zzz", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"No person found with this name"}`, w.Body.String())

	w = env.do(http.MethodGet, "/api/donors/search?q=ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result donor.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "Ana Silva", result.Donor.Name)
	assert.Len(t, result.Donations, 1)
}

func TestSuggestDonors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/donors/suggest?q=ana", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp suggestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Candidates, 2)
	assert.Nil(t, resp.Selected)

	w = env.do(http.MethodGet, "/api/donors/suggest?q=ana%20silva", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Selected)
	assert.Equal(t, int64(1), resp.Selected.ID)
	assert.Equal(t, "123", resp.IdentityDocument)
}

func TestPostBooking(t *testing.T) {
	testCases := []struct {
		name         string
		body         booking.Request
		expectedCode int
		expectedErr  string
		registered   int
	}{
		{
			name:         "Unknown name",
			body:         booking.Request{Name: "Carla", IdentityDocument: "1", LocationID: 2},
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  "Name not found",
		},
		{
			name:         "Wrong RG",
			body:         booking.Request{Name: "ana silva", IdentityDocument: "999", LocationID: 2},
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  "Invalid RG",
		},
		{
			name:         "Booked",
			body:         booking.Request{Name: "ana silva", IdentityDocument: "123", LocationID: 2},
			expectedCode: http.StatusCreated,
			registered:   1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do(http.MethodPost, "/api/bookings", tc.body)
			assert.Equal(t, tc.expectedCode, w.Code)
			assert.Len(t, env.upstream.registered, tc.registered)

			if tc.expectedErr != "" {
				assert.JSONEq(t, `{"error":"`+tc.expectedErr+`"}`, w.Body.String())
				return
			}
			var conf model.Confirmation
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conf))
			assert.Equal(t, "/api/confirmations/"+conf.ID, w.Header().Get("Location"))
			assert.Contains(t, env.store.confirmations, conf.ID)
		})
	}
}

func TestPostBooking_RemoteFailure(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.registerErr = errors.New("connection reset")

	w := env.do(http.MethodPost, "/api/bookings", booking.Request{Name: "Ana Silva", IdentityDocument: "123", LocationID: 2})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"Failed to book the donation. Please try again."}`, w.Body.String())
}

func TestPostBooking_CardReachableWhenStoreFails(t *testing.T) {
	env := newTestEnv(t)
	env.store.saveErr = errors.New("database is locked")

	w := env.do(http.MethodPost, "/api/bookings", booking.Request{Name: "Ana Silva", IdentityDocument: "123", LocationID: 2})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, env.store.confirmations)

	target := w.Header().Get("Location")
	require.NotEmpty(t, target)

	w = env.do(http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Card struct {
			DonorName string `json:"donor_name"`
		} `json:"card"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Ana Silva", resp.Card.DonorName)

	w = env.do(http.MethodGet, target+"/jpeg", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConfirmationEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.store.confirmations["c-1"] = &model.Confirmation{
		ID:          "c-1",
		DonorID:     1,
		DonorName:   "Ana Silva",
		BloodTypeID: 4,
		LocationID:  2,
		DonatedAt:   time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
	}

	w := env.do(http.MethodGet, "/api/confirmations/c-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		DateLine string   `json:"date_line"`
		Actions  []string `json:"actions"`
		ShareURL string   `json:"share_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "March 5, 2024 at 2:30 PM", resp.DateLine)
	assert.Equal(t, []string{"pdf", "jpeg", "share"}, resp.Actions)
	assert.True(t, strings.HasPrefix(resp.ShareURL, "https://wa.me/?text=I%20just%20donated%20blood"))

	w = env.do(http.MethodGet, "/api/confirmations/c-1/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = env.do(http.MethodGet, "/api/confirmations/c-1/jpeg", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))

	w = env.do(http.MethodGet, "/api/confirmations/c-1/share", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, resp.ShareURL, w.Header().Get("Location"))

	w = env.do(http.MethodGet, "/api/confirmations/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Confirmation not found"}`, w.Body.String())
}

func TestReferenceRoutesAreNotResponseCached(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		w := env.do(http.MethodGet, "/api/states", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[{"id":1,"sigla":"PR"}]`, w.Body.String())
		assert.Empty(t, w.Header().Get("X-Cache"))
	}
	assert.Equal(t, 3, env.upstream.stateCalls, "freshness belongs to the reference client")
}

func TestPostBooking_RateLimitedPerClient(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(config.ServerConfig{
		RateLimitPerSec:        1000,
		RateLimitBurst:         1000,
		CacheTTLSeconds:        60,
		BookingRateLimitPerMin: 1,
		BookingRateLimitBurst:  2,
	}, env.handler)

	attempt := func() *httptest.ResponseRecorder {
		payload, _ := json.Marshal(booking.Request{Name: "Ana Silva", IdentityDocument: "000", LocationID: 2})
		req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnprocessableEntity, attempt().Code)
	assert.Equal(t, http.StatusUnprocessableEntity, attempt().Code)
	w := attempt()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"Too many booking attempts. Please wait a minute and try again."}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/states", nil))
	assert.Equal(t, http.StatusOK, w.Code, "other routes keep the general limit")
}

func TestPutSubscription(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPut, "/api/subscriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())

	w = env.do(http.MethodPut, "/api/subscriptions", map[string]any{
		"endpoint": "https://push.example/1", "p256dh": "key", "auth": "secret", "donor_id": 1,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodGet, "/api/subscriptions?endpoint=https%3A%2F%2Fpush.example%2F1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"donor_id":1}`, w.Body.String())

	w = env.do(http.MethodDelete, "/api/subscriptions", map[string]any{"endpoint": "https://push.example/1"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodGet, "/api/subscriptions?endpoint=https%3A%2F%2Fpush.example%2F1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/vapid_public_key", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"public-key"}`, w.Body.String())

	r := gin.New()
	r.GET("/api/vapid_public_key", NewHandler(Deps{}).GetVAPIDPublicKey)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/vapid_public_key", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"Booking notifications are not enabled."}`, w.Body.String())
}

func TestPutSubscription_PushDisabled(t *testing.T) {
	st := newFakeStore()
	r := gin.New()
	r.PUT("/api/subscriptions", NewHandler(Deps{Store: st}).PutSubscription)

	payload, _ := json.Marshal(map[string]any{"endpoint": "https://push.example/1", "p256dh": "k", "auth": "a", "donor_id": 1})
	req := httptest.NewRequest(http.MethodPut, "/api/subscriptions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, st.subscriptions)
}
