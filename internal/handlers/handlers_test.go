package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcrew/backend/internal/config"
	"github.com/tripcrew/backend/internal/dto"
	"github.com/tripcrew/backend/internal/middleware"
	"github.com/tripcrew/backend/internal/notify"
	"github.com/tripcrew/backend/internal/services"
	"github.com/tripcrew/backend/internal/store/memstore"
	"github.com/tripcrew/backend/internal/utils"
)

type fixture struct {
	gw       *memstore.Store
	auth     *AuthHandler
	groups   *GroupsHandler
	trips    *TripsHandler
	payments *PaymentsHandler
	jwtCfg   config.JWTConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := memstore.New()
	jwtCfg := config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour}

	groupsSvc := services.NewGroups(gw)
	tripsSvc := services.NewTrips(gw)
	paymentsSvc := services.NewPayments(gw)
	sink := notify.LogSink{}

	payments := NewPaymentsHandler(paymentsSvc, tripsSvc, groupsSvc, nil, sink)
	return &fixture{
		gw:       gw,
		auth:     NewAuthHandler(gw, &jwtCfg),
		groups:   NewGroupsHandler(groupsSvc, sink),
		trips:    NewTripsHandler(tripsSvc, payments, sink),
		payments: payments,
		jwtCfg:   jwtCfg,
	}
}

// asUser builds a request carrying the authenticated user id, the way
// the auth middleware would have left it.
func asUser(userID uuid.UUID, method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, path, &buf)
	if body != nil {
		r.ContentLength = int64(buf.Len())
	}
	ctx := context.WithValue(r.Context(), utils.UserIDKey, userID)
	return r.WithContext(ctx)
}

func (f *fixture) register(t *testing.T, email string) uuid.UUID {
	t.Helper()
	w := httptest.NewRecorder()
	body := dto.RegisterRequest{
		Email:     email,
		Password:  "hunter22",
		FirstName: "Test",
		LastName:  "User",
	}
	f.auth.Register(w, httptest.NewRequest(http.MethodPost, "/api/auth/register", encode(t, body)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	id, err := uuid.Parse(resp.User.ID)
	require.NoError(t, err)
	return id
}

func encode(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return &buf
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	f.register(t, "anna@example.com")

	w := httptest.NewRecorder()
	f.auth.Login(w, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		encode(t, dto.LoginRequest{Email: "anna@example.com", Password: "hunter22"})))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	w = httptest.NewRecorder()
	f.auth.Login(w, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		encode(t, dto.LoginRequest{Email: "anna@example.com", Password: "wrong"})))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "anna@example.com")

	w := httptest.NewRecorder()
	f.auth.Register(w, httptest.NewRequest(http.MethodPost, "/api/auth/register",
		encode(t, dto.RegisterRequest{Email: "anna@example.com", Password: "hunter22", FirstName: "A", LastName: "B"})))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestJWTRoundTrip(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	token, err := middleware.GenerateToken(userID, "anna@example.com", &f.jwtCfg)
	require.NoError(t, err)

	var gotID uuid.UUID
	handler := middleware.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		id, ok := utils.GetUserIDFromContext(r.Context())
		require.True(t, ok)
		gotID = id
		w.WriteHeader(http.StatusOK)
	}, &f.jwtCfg)

	r := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, gotID)

	// Missing and malformed headers are rejected.
	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	handler(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGroupLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	adminID := f.register(t, "admin@example.com")
	memberID := f.register(t, "member@example.com")

	// Create a group.
	w := httptest.NewRecorder()
	f.groups.CreateGroup(w, asUser(adminID, http.MethodPost, "/api/groups",
		dto.CreateGroupRequest{Name: "Alps2025"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var group dto.GroupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &group))
	assert.Equal(t, group.ID, group.InviteCode)

	// Second member joins with the invite code.
	w = httptest.NewRecorder()
	f.groups.JoinGroup(w, asUser(memberID, http.MethodPost, "/api/groups/join",
		dto.JoinGroupRequest{InviteCode: group.InviteCode}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Joining twice conflicts.
	w = httptest.NewRecorder()
	f.groups.JoinGroup(w, asUser(memberID, http.MethodPost, "/api/groups/join",
		dto.JoinGroupRequest{InviteCode: group.InviteCode}))
	assert.Equal(t, http.StatusConflict, w.Code)

	// A malformed invite code is a bad request.
	w = httptest.NewRecorder()
	f.groups.JoinGroup(w, asUser(memberID, http.MethodPost, "/api/groups/join",
		dto.JoinGroupRequest{InviteCode: "not-a-uuid"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Both members show up in the listing.
	w = httptest.NewRecorder()
	f.groups.GroupByID(w, asUser(adminID, http.MethodGet, "/api/groups/"+group.ID+"/members", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var members dto.GroupMembersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &members))
	assert.Len(t, members.Members, 2)

	// The only admin cannot leave.
	w = httptest.NewRecorder()
	f.groups.GroupByID(w, asUser(adminID, http.MethodPost, "/api/groups/"+group.ID+"/leave", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	// Promote the member, then the original admin can leave.
	w = httptest.NewRecorder()
	f.groups.GroupByID(w, asUser(adminID, http.MethodPut, "/api/groups/"+group.ID+"/role",
		dto.SetRoleRequest{UserID: memberID.String(), MakeAdmin: true}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	f.groups.GroupByID(w, asUser(adminID, http.MethodPost, "/api/groups/"+group.ID+"/leave", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestTripAndPaymentsOverHTTP(t *testing.T) {
	f := newFixture(t)
	adminID := f.register(t, "admin@example.com")
	memberID := f.register(t, "member@example.com")

	w := httptest.NewRecorder()
	f.groups.CreateGroup(w, asUser(adminID, http.MethodPost, "/api/groups",
		dto.CreateGroupRequest{Name: "Alps2025"}))
	require.Equal(t, http.StatusCreated, w.Code)
	var group dto.GroupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &group))

	w = httptest.NewRecorder()
	f.groups.JoinGroup(w, asUser(memberID, http.MethodPost, "/api/groups/join",
		dto.JoinGroupRequest{InviteCode: group.ID}))
	require.Equal(t, http.StatusOK, w.Code)

	// Create a trip far in the future.
	down := "150.00"
	w = httptest.NewRecorder()
	f.trips.CreateTrip(w, asUser(adminID, http.MethodPost, "/api/trips", dto.CreateTripRequest{
		GroupID:     group.ID,
		Name:        "Summit week",
		Destination: "Zermatt",
		DateFrom:    "2031-07-01",
		DateTo:      "2031-07-08",
		Currency:    "EUR",
		DownPayment: &down,
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var trip dto.TripResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trip))
	assert.Equal(t, "upcoming", trip.Status)

	// Member subscribes.
	w = httptest.NewRecorder()
	f.trips.TripByID(w, asUser(memberID, http.MethodPost, "/api/trips/"+trip.ID+"/subscribe", nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Creator was subscribed automatically, member joined: two subscribers.
	w = httptest.NewRecorder()
	f.trips.TripByID(w, asUser(adminID, http.MethodGet, "/api/trips/"+trip.ID+"/subscribers", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var subs dto.SubscriberListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &subs))
	assert.Len(t, subs.Subscribers, 2)

	// Admin records a manual down payment for the member.
	w = httptest.NewRecorder()
	f.trips.TripByID(w, asUser(adminID, http.MethodPost, "/api/trips/"+trip.ID+"/payments/manual",
		dto.ManualPaymentRequest{UserID: memberID.String(), Stage: "down", Amount: "150.00"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var payment dto.PaymentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payment))
	assert.True(t, payment.Subscription.DownPayment)
	assert.Equal(t, "paid", payment.Stages["down"])

	// A non-admin cannot record manual payments.
	w = httptest.NewRecorder()
	f.trips.TripByID(w, asUser(memberID, http.MethodPost, "/api/trips/"+trip.ID+"/payments/manual",
		dto.ManualPaymentRequest{UserID: memberID.String(), Stage: "full", Amount: "500.00"}))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The paid member can no longer unsubscribe.
	w = httptest.NewRecorder()
	f.trips.TripByID(w, asUser(memberID, http.MethodDelete, "/api/trips/"+trip.ID+"/subscribe", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	// Payment status reports the verified stages.
	w = httptest.NewRecorder()
	f.trips.TripByID(w, asUser(memberID, http.MethodGet, "/api/trips/"+trip.ID+"/payments", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payment))
	assert.Equal(t, "paid", payment.Stages["down"])
	assert.Equal(t, "unpaid", payment.Stages["full"])

	// Capture endpoint is down without PayPal credentials.
	w = httptest.NewRecorder()
	f.trips.TripByID(w, asUser(memberID, http.MethodPost, "/api/trips/"+trip.ID+"/payments/capture",
		dto.CapturePaymentRequest{Stage: "full", OrderID: "ORDER-1"}))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// Removing a paid subscriber needs the override flag.
	w = httptest.NewRecorder()
	f.trips.TripByID(w, asUser(adminID, http.MethodDelete, "/api/trips/"+trip.ID+"/subscribers",
		dto.RemoveSubscriberRequest{UserID: memberID.String()}))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	f.trips.TripByID(w, asUser(adminID, http.MethodDelete, "/api/trips/"+trip.ID+"/subscribers",
		dto.RemoveSubscriberRequest{UserID: memberID.String(), Override: true}))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSubscribeToPastTripConflicts(t *testing.T) {
	f := newFixture(t)
	adminID := f.register(t, "admin@example.com")
	memberID := f.register(t, "member@example.com")

	w := httptest.NewRecorder()
	f.groups.CreateGroup(w, asUser(adminID, http.MethodPost, "/api/groups",
		dto.CreateGroupRequest{Name: "Alps2025"}))
	require.Equal(t, http.StatusCreated, w.Code)
	var group dto.GroupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &group))

	w = httptest.NewRecorder()
	f.groups.JoinGroup(w, asUser(memberID, http.MethodPost, "/api/groups/join",
		dto.JoinGroupRequest{InviteCode: group.ID}))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	f.trips.CreateTrip(w, asUser(adminID, http.MethodPost, "/api/trips", dto.CreateTripRequest{
		GroupID:  group.ID,
		Name:     "Long gone",
		DateFrom: "2019-07-01",
		DateTo:   "2019-07-08",
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var trip dto.TripResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trip))

	w = httptest.NewRecorder()
	f.trips.TripByID(w, asUser(memberID, http.MethodPost, "/api/trips/"+trip.ID+"/subscribe", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	var errResp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "TRIP_CLOSED", errResp.Code)
}
