package web

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chatline/auth"
	"chatline/domain"
	"chatline/errors"
	"chatline/mocks"
	"chatline/services"
)

// sessionCookie digs the "token" cookie out of a recorded response.
func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.TokenCookie {
			return c
		}
	}
	return nil
}

func decodeEnvelope[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var body struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.True(t, body.Success)
	return body.Data
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body.Error
}

func TestAuthHandler_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mocks.NewMockIAuthService(ctrl)
	handler := NewAuthHandler(slog.New(slog.DiscardHandler), mockService, 24*time.Hour, false)

	t.Run("should create the account and open a session", func(t *testing.T) {
		req := require.New(t)

		mockService.EXPECT().
			Register("alice@example.com", "ComplexPass123!").
			Return(services.Token("signed-jwt"), nil).
			Times(1)

		r := httptest.NewRequest(http.MethodPost, "/api/auth/register",
			strings.NewReader(`{"email":"alice@example.com","password":"ComplexPass123!"}`))
		rr := httptest.NewRecorder()

		handler.Register(rr, r)

		req.Equal(http.StatusCreated, rr.Code)
		data := decodeEnvelope[map[string]string](t, rr)
		req.Equal("signed-jwt", data["token"])

		cookie := sessionCookie(t, rr)
		req.NotNil(cookie)
		req.Equal("signed-jwt", cookie.Value)
		req.True(cookie.HttpOnly)
		req.Equal("/", cookie.Path)
		req.Equal(int((24 * time.Hour).Seconds()), cookie.MaxAge)
	})

	t.Run("should answer 409 when the email is already taken", func(t *testing.T) {
		req := require.New(t)

		mockService.EXPECT().
			Register("alice@example.com", gomock.Any()).
			Return(services.Token(""), errors.ErrUserAlreadyExists).
			Times(1)

		r := httptest.NewRequest(http.MethodPost, "/api/auth/register",
			strings.NewReader(`{"email":"alice@example.com","password":"ComplexPass123!"}`))
		rr := httptest.NewRecorder()

		handler.Register(rr, r)

		req.Equal(http.StatusConflict, rr.Code)
		req.Equal("user already exists", decodeError(t, rr))
		req.Nil(sessionCookie(t, rr))
	})

	t.Run("should answer 400 on a body that is not JSON", func(t *testing.T) {
		req := require.New(t)

		// The service must never see a request we could not decode
		mockService.EXPECT().Register(gomock.Any(), gomock.Any()).Times(0)

		r := httptest.NewRequest(http.MethodPost, "/api/auth/register",
			strings.NewReader(`{broken`))
		rr := httptest.NewRecorder()

		handler.Register(rr, r)

		req.Equal(http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mocks.NewMockIAuthService(ctrl)
	handler := NewAuthHandler(slog.New(slog.DiscardHandler), mockService, 24*time.Hour, false)

	t.Run("should open a session for valid credentials", func(t *testing.T) {
		req := require.New(t)

		mockService.EXPECT().
			Login("bob@example.com", "ComplexPass123!").
			Return(services.Token("signed-jwt"), nil).
			Times(1)

		r := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"bob@example.com","password":"ComplexPass123!"}`))
		rr := httptest.NewRecorder()

		handler.Login(rr, r)

		req.Equal(http.StatusOK, rr.Code)
		data := decodeEnvelope[map[string]string](t, rr)
		req.Equal("signed-jwt", data["token"])

		cookie := sessionCookie(t, rr)
		req.NotNil(cookie)
		req.True(cookie.HttpOnly)
	})

	t.Run("should answer 401 without leaking which part was wrong", func(t *testing.T) {
		req := require.New(t)

		mockService.EXPECT().
			Login("bob@example.com", "wrong").
			Return(services.Token(""), errors.ErrInvalidCredentials).
			Times(1)

		r := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"bob@example.com","password":"wrong"}`))
		rr := httptest.NewRecorder()

		handler.Login(rr, r)

		req.Equal(http.StatusUnauthorized, rr.Code)
		req.Equal("invalid credentials", decodeError(t, rr))
		req.Nil(sessionCookie(t, rr))
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	req := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handler := NewAuthHandler(slog.New(slog.DiscardHandler), mocks.NewMockIAuthService(ctrl), 24*time.Hour, false)

	r := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rr := httptest.NewRecorder()

	handler.Logout(rr, r)

	req.Equal(http.StatusOK, rr.Code)

	cookie := sessionCookie(t, rr)
	req.NotNil(cookie)
	req.Empty(cookie.Value)
	req.Negative(cookie.MaxAge) // expired immediately
}

func TestAuthHandler_Me(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mocks.NewMockIAuthService(ctrl)
	handler := NewAuthHandler(slog.New(slog.DiscardHandler), mockService, 24*time.Hour, false)

	t.Run("should return the authenticated account", func(t *testing.T) {
		req := require.New(t)
		created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

		mockService.EXPECT().
			Me("user-42").
			Return(domain.User{ID: "user-42", Email: "alice@example.com", CreatedAt: created}, nil).
			Times(1)

		r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		r = r.WithContext(context.WithValue(r.Context(), auth.UserIDKey, "user-42"))
		rr := httptest.NewRecorder()

		handler.Me(rr, r)

		req.Equal(http.StatusOK, rr.Code)
		user := decodeEnvelope[domain.User](t, rr)
		req.Equal("user-42", user.ID)
		req.Equal("alice@example.com", user.Email)
	})

	t.Run("should answer 401 when no identity reached the handler", func(t *testing.T) {
		req := require.New(t)

		mockService.EXPECT().Me(gomock.Any()).Times(0)

		r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		rr := httptest.NewRecorder()

		handler.Me(rr, r)

		req.Equal(http.StatusUnauthorized, rr.Code)
	})

	t.Run("should answer 404 when the account vanished", func(t *testing.T) {
		req := require.New(t)

		mockService.EXPECT().
			Me("ghost").
			Return(domain.User{}, errors.ErrNotFound).
			Times(1)

		r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		r = r.WithContext(context.WithValue(r.Context(), auth.UserIDKey, "ghost"))
		rr := httptest.NewRecorder()

		handler.Me(rr, r)

		req.Equal(http.StatusNotFound, rr.Code)
	})
}
