package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/messaging-service/internal/idgen"
	"github.com/campusmarket/marketplace/messaging-service/internal/listing"
	"github.com/campusmarket/marketplace/messaging-service/internal/notification"
	"github.com/campusmarket/marketplace/messaging-service/internal/repository"
	"github.com/campusmarket/marketplace/messaging-service/internal/service"
	"github.com/campusmarket/marketplace/pkg/database"
	"github.com/campusmarket/marketplace/pkg/jwt"
	"github.com/campusmarket/marketplace/pkg/middleware"
)

const testSecret = "handler-test-secret"

type fakeListings map[string]*domain.Listing

func (f fakeListings) GetListing(_ context.Context, id string) (*domain.Listing, error) {
	l, ok := f[id]
	if !ok {
		return nil, listing.ErrListingNotFound
	}
	return l, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.New(&database.Config{Driver: "sqlite", FilePath: ":memory:", MaxOpenConns: 1, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db,
		&domain.ConversationModel{},
		&domain.MessageModel{},
		&domain.NotificationPreferenceModel{},
		&domain.UserModel{},
	))

	convs := repository.NewGormConversationRepository(db, idgen.NewUUIDGenerator())
	msgs := repository.NewGormMessageRepository(db, idgen.NewULIDGenerator())
	users := repository.NewGormUserRepository(db)
	prefs := repository.NewGormPreferenceRepository(db)
	resolver := service.NewConversationResolver(convs, fakeListings{
		"lamp": {ID: "lamp", SellerID: "seller", Title: "Desk Lamp"},
	})

	msgSvc := service.NewMessagingService(convs, msgs, users, resolver, nil, time.Minute, notification.NoopDispatcher{})
	prefSvc := service.NewPreferenceService(prefs)

	verifier, err := jwt.NewVerifier(jwt.KeyConfig{Secret: testSecret})
	require.NoError(t, err)

	r := gin.New()
	NewHandler(msgSvc, prefSvc, middleware.NewAuthMiddleware(verifier)).RegisterRoutes(r)
	return &testServer{t: t, router: r}
}

func (s *testServer) do(method, path, userID string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := jwt.SignHS256(testSecret, userID, time.Hour)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/chat/messages"},
		{http.MethodPost, "/chat/conversations/x/messages"},
		{http.MethodGet, "/chat/conversations"},
		{http.MethodGet, "/chat/conversations/x"},
		{http.MethodGet, "/chat/conversations/x/messages"},
		{http.MethodPut, "/chat/conversations/x/read"},
		{http.MethodGet, "/chat/unread-count"},
		{http.MethodPut, "/chat/messages/x/read"},
		{http.MethodGet, "/chat/conversations/listing/lamp"},
		{http.MethodGet, "/notifications/preferences"},
		{http.MethodPut, "/notifications/preferences"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w, env := s.do(rt.method, rt.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
		})
	}
}

func TestMessagingFlow(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodPost, "/chat/messages", "buyer", gin.H{"listing_id": "lamp", "content": "Still available?"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sent := decodeData[domain.MessageResponse](t, env)
	assert.Equal(t, "buyer", sent.SenderID)
	assert.Equal(t, "Unknown User", sent.SenderName)
	convID := sent.ConversationID

	w, env = s.do(http.MethodGet, "/chat/conversations", "seller", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeData[[]domain.ConversationResponse](t, env)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].UnreadCount)

	w, env = s.do(http.MethodGet, "/chat/unread-count", "seller", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decodeData[domain.UnreadCountResponse](t, env).UnreadCount)

	w, _ = s.do(http.MethodPost, "/chat/conversations/"+convID+"/messages", "seller", gin.H{"content": "Yes!"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env = s.do(http.MethodGet, "/chat/conversations/"+convID+"/messages", "buyer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decodeData[[]domain.MessageResponse](t, env)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Still available?", msgs[0].Content)
	assert.Equal(t, "Yes!", msgs[1].Content)

	w, env = s.do(http.MethodGet, "/chat/conversations/"+convID, "buyer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decodeData[domain.ConversationDetailResponse](t, env)
	assert.Equal(t, int64(1), detail.UnreadCount)
	assert.Len(t, detail.Messages, 2)

	w, env = s.do(http.MethodGet, "/chat/conversations/"+convID+"/unread-count", "buyer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decodeData[domain.UnreadCountResponse](t, env).UnreadCount)

	w, env = s.do(http.MethodPut, "/chat/conversations/"+convID+"/read", "seller", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decodeData[domain.CountResponse](t, env).Count)

	w, _ = s.do(http.MethodPut, "/chat/messages/"+msgs[1].ID+"/read", "buyer", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodGet, "/chat/unread-count", "buyer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decodeData[domain.UnreadCountResponse](t, env).UnreadCount)

	w, env = s.do(http.MethodGet, "/chat/conversations/listing/lamp", "buyer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, convID, decodeData[domain.ConversationDetailResponse](t, env).ID)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodPost, "/chat/messages", "buyer", gin.H{"listing_id": "lamp", "content": "hello"})
	require.Equal(t, http.StatusCreated, w.Code)
	sent := decodeData[domain.MessageResponse](t, env)

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		status int
	}{
		{"unknown listing", http.MethodPost, "/chat/messages", "buyer", gin.H{"listing_id": "nope", "content": "hi"}, http.StatusNotFound},
		{"self conversation", http.MethodPost, "/chat/messages", "seller", gin.H{"listing_id": "lamp", "content": "hi"}, http.StatusBadRequest},
		{"empty content", http.MethodPost, "/chat/messages", "buyer", gin.H{"listing_id": "lamp", "content": ""}, http.StatusBadRequest},
		{"too long", http.MethodPost, "/chat/messages", "buyer", gin.H{"listing_id": "lamp", "content": strings.Repeat("x", 5001)}, http.StatusBadRequest},
		{"missing listing id", http.MethodPost, "/chat/messages", "buyer", gin.H{"content": "hi"}, http.StatusBadRequest},
		{"unknown conversation", http.MethodGet, "/chat/conversations/nope", "buyer", nil, http.StatusNotFound},
		{"non participant read", http.MethodGet, "/chat/conversations/" + sent.ConversationID, "stranger", nil, http.StatusForbidden},
		{"non participant send", http.MethodPost, "/chat/conversations/" + sent.ConversationID + "/messages", "stranger", gin.H{"content": "hi"}, http.StatusForbidden},
		{"non participant mark", http.MethodPut, "/chat/messages/" + sent.ID + "/read", "stranger", nil, http.StatusForbidden},
		{"unknown message", http.MethodPut, "/chat/messages/nope/read", "buyer", nil, http.StatusNotFound},
		{"self listing lookup", http.MethodGet, "/chat/conversations/listing/lamp", "seller", nil, http.StatusBadRequest},
		{"listing lookup missing", http.MethodGet, "/chat/conversations/listing/nope", "buyer", nil, http.StatusNotFound},
		{"listing lookup id too long", http.MethodGet, "/chat/conversations/listing/" + strings.Repeat("l", 65), "buyer", nil, http.StatusBadRequest},
		{"listing id too long", http.MethodPost, "/chat/messages", "buyer", gin.H{"listing_id": strings.Repeat("l", 65), "content": "hi"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.False(t, env.Success)
			assert.NotNil(t, env.Error)
		})
	}
}

func TestPreferencesEndpoints(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodGet, "/notifications/preferences", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	pref := decodeData[domain.PreferenceResponse](t, env)
	assert.True(t, pref.EmailNotificationsEnabled)

	w, env = s.do(http.MethodPut, "/notifications/preferences", "user-1", gin.H{
		"email_notifications_enabled": false,
		"email":                       "me@example.com",
		"first_name":                  "Pat",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pref = decodeData[domain.PreferenceResponse](t, env)
	assert.False(t, pref.EmailNotificationsEnabled)
	assert.Equal(t, "me@example.com", pref.Email)

	w, env = s.do(http.MethodGet, "/notifications/preferences", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeData[domain.PreferenceResponse](t, env).EmailNotificationsEnabled)

	invalid := []gin.H{
		{"email": "me@example.com"},
		{"email_notifications_enabled": true, "email": "not-an-email"},
		{"email_notifications_enabled": true, "first_name": strings.Repeat("a", 101)},
	}
	for _, body := range invalid {
		w, env = s.do(http.MethodPut, "/notifications/preferences", "user-1", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		require.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	}
}
