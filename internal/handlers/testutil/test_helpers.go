package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/studyhall-app/studyhall/internal/api"
	"github.com/studyhall-app/studyhall/internal/app"
	iauth "github.com/studyhall-app/studyhall/internal/auth"
	"github.com/studyhall-app/studyhall/internal/database"
	"github.com/studyhall-app/studyhall/internal/models"
	"github.com/studyhall-app/studyhall/internal/realtime"
	"github.com/studyhall-app/studyhall/internal/services"
	"github.com/studyhall-app/studyhall/pkg/crypto"
	"github.com/studyhall-app/studyhall/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database
// for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService
	Hub    *realtime.Hub
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	jwtSecret := "test-suite-super-secret-key-32-bytes!!"
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         jwtSecret,
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	cfg := &app.Config{
		Server: app.ServerConfig{Port: 8000},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: jwtSecret,
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
	}

	userSvc, err := services.NewUserService(db)
	require.NoError(t, err)
	inviteSvc, err := services.NewInviteService(db)
	require.NoError(t, err)
	relationSvc, err := services.NewRelationService(db)
	require.NoError(t, err)
	lessonSvc, err := services.NewLessonService(db, relationSvc)
	require.NoError(t, err)
	boardSvc, err := services.NewBoardService(db, relationSvc)
	require.NoError(t, err)
	attachmentSvc, err := services.NewAttachmentService(db, relationSvc, t.TempDir(), 1<<20)
	require.NoError(t, err)
	chatSvc, err := services.NewChatService(db, relationSvc, 50)
	require.NoError(t, err)

	hub := realtime.NewHub()

	router, err := api.NewRouter(api.Dependencies{
		DB:          db,
		Config:      cfg,
		JWT:         jwtSvc,
		Hub:         hub,
		Users:       userSvc,
		Invites:     inviteSvc,
		Relations:   relationSvc,
		Lessons:     lessonSvc,
		Boards:      boardSvc,
		Attachments: attachmentSvc,
		Chat:        chatSvc,
	})
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
		Hub:    hub,
	}
}

// CreateUser inserts a new active user with a unique username and returns the
// record together with a valid access token.
func (e *Env) CreateUser(prefix string) (*models.User, string) {
	e.T.Helper()

	username := prefix + "-" + uuid.NewString()[:8]
	hashed, err := crypto.HashPassword("TestPassw0rd!")
	require.NoError(e.T, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		IsActive: true,
	}
	require.NoError(e.T, e.DB.Create(user).Error)

	token, err := e.JWT.GenerateAccessToken(user.ID)
	require.NoError(e.T, err)

	return user, token
}

// ConnectUsers issues an invite from creator and accepts it as acceptor,
// returning the resulting relation ID.
func (e *Env) ConnectUsers(creatorToken, acceptorToken string, inviteType models.InviteType) string {
	e.T.Helper()

	created := e.Request(http.MethodPost, "/api/invites", map[string]any{"type": string(inviteType)}, creatorToken)
	require.Equal(e.T, http.StatusCreated, created.Code, created.Body.String())

	var codePayload struct {
		Code string `json:"code"`
	}
	DecodeInto(e.T, DecodeResponse(e.T, created).Data, &codePayload)
	require.NotEmpty(e.T, codePayload.Code)

	accepted := e.Request(http.MethodPost, "/api/invites/accept", map[string]any{"code": codePayload.Code}, acceptorToken)
	require.Equal(e.T, http.StatusCreated, accepted.Code, accepted.Body.String())

	var relationPayload struct {
		Relation models.Relation `json:"relation"`
	}
	DecodeInto(e.T, DecodeResponse(e.T, accepted).Data, &relationPayload)
	require.NotEmpty(e.T, relationPayload.Relation.ID)

	return relationPayload.Relation.ID
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON
// encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
