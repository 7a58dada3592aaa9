package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/colehouse/taskline/internal/config"
	"github.com/colehouse/taskline/internal/domain"
	"github.com/colehouse/taskline/internal/service/auth"
	"github.com/colehouse/taskline/internal/store"
)

// memoryUserStore is a minimal in-memory UserStore for handler tests.
// It hashes passwords the way the real store does so login can verify them.
type memoryUserStore struct {
	byID    map[uuid.UUID]*domain.User
	byEmail map[string]*domain.User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{
		byID:    make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (s *memoryUserStore) Create(ctx context.Context, user *domain.User) error {
	if _, exists := s.byEmail[user.Email]; exists {
		return store.ErrEmailExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	user.HashedPassword = string(hash)
	user.Password = ""
	s.byID[user.ID] = user
	s.byEmail[user.Email] = user
	return nil
}

func (s *memoryUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (s *memoryUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (s *memoryUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return s
}

func newAuthTestHandler(t *testing.T) (*AuthHandler, *memoryUserStore) {
	t.Helper()

	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:                   "test-secret-thirty-two-characters!!",
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 10080,
	})
	require.NoError(t, err)

	users := newMemoryUserStore()
	handler := NewAuthHandler(users, jwtService, auth.NewBcryptVerifier(), slog.Default())
	return handler, users
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	handler(rr, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body)))
	return rr
}

func TestRegister(t *testing.T) {
	handler, users := newAuthTestHandler(t)

	rr := postJSON(t, handler.Register, "/api/auth/register", RegisterRequest{
		Email:    "new@example.com",
		Password: "a-long-enough-password",
	})

	require.Equal(t, http.StatusCreated, rr.Code)

	var response AuthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.NotEqual(t, uuid.Nil, response.UserID)
	assert.NotEmpty(t, response.AccessToken)
	assert.NotEmpty(t, response.RefreshToken)

	stored, err := users.GetByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.HashedPassword)
	assert.Empty(t, stored.Password)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	handler, _ := newAuthTestHandler(t)

	req := RegisterRequest{Email: "dup@example.com", Password: "a-long-enough-password"}
	require.Equal(t, http.StatusCreated, postJSON(t, handler.Register, "/api/auth/register", req).Code)

	rr := postJSON(t, handler.Register, "/api/auth/register", req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRegisterInvalidPayload(t *testing.T) {
	handler, _ := newAuthTestHandler(t)

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing email", RegisterRequest{Password: "a-long-enough-password"}},
		{"malformed email", RegisterRequest{Email: "nope", Password: "a-long-enough-password"}},
		{"short password", RegisterRequest{Email: "ok@example.com", Password: "short"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := postJSON(t, handler.Register, "/api/auth/register", tc.req)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestLogin(t *testing.T) {
	handler, _ := newAuthTestHandler(t)

	register := RegisterRequest{Email: "login@example.com", Password: "a-long-enough-password"}
	require.Equal(t, http.StatusCreated, postJSON(t, handler.Register, "/api/auth/register", register).Code)

	rr := postJSON(t, handler.Login, "/api/auth/login", LoginRequest{
		Email:    "login@example.com",
		Password: "a-long-enough-password",
	})

	require.Equal(t, http.StatusOK, rr.Code)

	var response AuthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.NotEmpty(t, response.AccessToken)
}

func TestLoginBadCredentials(t *testing.T) {
	handler, _ := newAuthTestHandler(t)

	register := RegisterRequest{Email: "victim@example.com", Password: "a-long-enough-password"}
	require.Equal(t, http.StatusCreated, postJSON(t, handler.Register, "/api/auth/register", register).Code)

	// Wrong password and unknown user produce the same response
	wrongPassword := postJSON(t, handler.Login, "/api/auth/login", LoginRequest{
		Email:    "victim@example.com",
		Password: "not-the-password",
	})
	unknownUser := postJSON(t, handler.Login, "/api/auth/login", LoginRequest{
		Email:    "ghost@example.com",
		Password: "a-long-enough-password",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)

	var wrongBody, unknownBody map[string]interface{}
	require.NoError(t, json.NewDecoder(wrongPassword.Body).Decode(&wrongBody))
	require.NoError(t, json.NewDecoder(unknownUser.Body).Decode(&unknownBody))
	assert.Equal(t, wrongBody["error"], unknownBody["error"])
}

func TestRefreshToken(t *testing.T) {
	handler, _ := newAuthTestHandler(t)

	register := RegisterRequest{Email: "refresh@example.com", Password: "a-long-enough-password"}
	registerResp := postJSON(t, handler.Register, "/api/auth/register", register)
	require.Equal(t, http.StatusCreated, registerResp.Code)

	var initial AuthResponse
	require.NoError(t, json.NewDecoder(registerResp.Body).Decode(&initial))

	rr := postJSON(t, handler.RefreshToken, "/api/auth/refresh", RefreshTokenRequest{
		RefreshToken: initial.RefreshToken,
	})

	require.Equal(t, http.StatusOK, rr.Code)

	var refreshed AuthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&refreshed))
	assert.Equal(t, initial.UserID, refreshed.UserID)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestRefreshTokenRejectsAccessToken(t *testing.T) {
	handler, _ := newAuthTestHandler(t)

	register := RegisterRequest{Email: "mixup@example.com", Password: "a-long-enough-password"}
	registerResp := postJSON(t, handler.Register, "/api/auth/register", register)
	require.Equal(t, http.StatusCreated, registerResp.Code)

	var initial AuthResponse
	require.NoError(t, json.NewDecoder(registerResp.Body).Decode(&initial))

	rr := postJSON(t, handler.RefreshToken, "/api/auth/refresh", RefreshTokenRequest{
		RefreshToken: initial.AccessToken,
	})

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
