package web

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chatline/auth"
	"chatline/contract"
	"chatline/domain"
	"chatline/mocks"
	"chatline/observability"
	"chatline/projection"
)

type routerFixture struct {
	handler      http.Handler
	authService  *mocks.MockIAuthService
	messages     *mocks.MockIMessageService
	users        *mocks.MockIUserService
	orchestrator *mocks.MockIOrchestrator
	uploadsDir   string
}

func newRouterFixture(t *testing.T, ctrl *gomock.Controller) *routerFixture {
	t.Helper()
	log := slog.New(slog.DiscardHandler)

	fix := &routerFixture{
		authService:  mocks.NewMockIAuthService(ctrl),
		messages:     mocks.NewMockIMessageService(ctrl),
		users:        mocks.NewMockIUserService(ctrl),
		orchestrator: mocks.NewMockIOrchestrator(ctrl),
		uploadsDir:   t.TempDir(),
	}

	fix.handler = NewRouter(log,
		NewAuthHandler(log, fix.authService, time.Hour, false),
		NewMessageHandler(log, fix.messages, projection.NewConversations(), 10<<20),
		NewUserHandler(log, fix.users),
		NewSystemHandler(log, observability.NewMonitor(log)),
		NewWSHandler(log, fix.orchestrator, []string{"*"}),
		RouterConfig{
			AllowedOrigins:    []string{"*"},
			AuthRatePerMinute: 100,
			APIRatePerMinute:  100,
			UploadsDir:        fix.uploadsDir,
		})
	return fix
}

// bearerToken issues a real short-lived JWT the middleware will accept.
func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, []string{"user"}, time.Hour)
	require.NoError(t, err)
	return token
}

func TestRouter_Routing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fix := newRouterFixture(t, ctrl)

	t.Run("health stays open without a session", func(t *testing.T) {
		req := require.New(t)

		r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rr := httptest.NewRecorder()
		fix.handler.ServeHTTP(rr, r)

		req.Equal(http.StatusOK, rr.Code)
		data := decodeEnvelope[map[string]string](t, rr)
		req.Equal("ok", data["status"])
	})

	t.Run("protected routes answer 401 without a token", func(t *testing.T) {
		for _, path := range []string{"/api/users", "/api/stats", "/api/conversations", "/api/messages/bob", "/api/auth/me"} {
			r := httptest.NewRequest(http.MethodGet, path, nil)
			rr := httptest.NewRecorder()
			fix.handler.ServeHTTP(rr, r)

			require.Equal(t, http.StatusUnauthorized, rr.Code, "path=%s", path)
		}
	})

	t.Run("a Bearer header opens the authenticated surface", func(t *testing.T) {
		req := require.New(t)

		fix.users.EXPECT().
			ListOthers("alice").
			Return([]domain.User{{ID: "bob", Email: "bob@example.com"}}, nil).
			Times(1)

		r := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		r.Header.Set("Authorization", "Bearer "+bearerToken(t, "alice"))
		rr := httptest.NewRecorder()
		fix.handler.ServeHTTP(rr, r)

		req.Equal(http.StatusOK, rr.Code)
		users := decodeEnvelope[[]domain.User](t, rr)
		req.Len(users, 1)
		req.Equal("bob@example.com", users[0].Email)
	})

	t.Run("the session cookie works where headers cannot be set", func(t *testing.T) {
		req := require.New(t)

		fix.authService.EXPECT().
			Me("alice").
			Return(domain.User{ID: "alice", Email: "alice@example.com"}, nil).
			Times(1)

		r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		r.AddCookie(&http.Cookie{Name: auth.TokenCookie, Value: bearerToken(t, "alice")})
		rr := httptest.NewRecorder()
		fix.handler.ServeHTTP(rr, r)

		req.Equal(http.StatusOK, rr.Code)
	})

	t.Run("the search route wins over the history wildcard", func(t *testing.T) {
		req := require.New(t)

		// A mismatch would route this to GetConversation instead
		fix.messages.EXPECT().
			Search(gomock.Any(), "alice", "deploy", 20).
			Return(nil, uint64(0), nil).
			Times(1)

		r := httptest.NewRequest(http.MethodGet, "/api/messages/search?q=deploy", nil)
		r.Header.Set("Authorization", "Bearer "+bearerToken(t, "alice"))
		rr := httptest.NewRecorder()
		fix.handler.ServeHTTP(rr, r)

		req.Equal(http.StatusOK, rr.Code)
	})

	t.Run("stored attachments are served, directory listings are not", func(t *testing.T) {
		req := require.New(t)

		content := []byte("fake png bytes")
		req.NoError(os.WriteFile(filepath.Join(fix.uploadsDir, "123_abc.png"), content, 0o600))

		r := httptest.NewRequest(http.MethodGet, "/uploads/123_abc.png", nil)
		rr := httptest.NewRecorder()
		fix.handler.ServeHTTP(rr, r)
		req.Equal(http.StatusOK, rr.Code)
		req.Equal(content, rr.Body.Bytes())

		r = httptest.NewRequest(http.MethodGet, "/uploads/", nil)
		rr = httptest.NewRecorder()
		fix.handler.ServeHTTP(rr, r)
		req.Equal(http.StatusNotFound, rr.Code)
	})
}

func TestRouter_WebsocketRoundTrip(t *testing.T) {
	req := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fix := newRouterFixture(t, ctrl)
	srv := httptest.NewServer(fix.handler)
	defer srv.Close()

	connected := make(chan contract.ConnectionHandle, 1)
	fix.orchestrator.EXPECT().
		Connect("alice", gomock.Any()).
		Do(func(_ string, handle contract.ConnectionHandle) { connected <- handle }).
		Times(1)
	// The read pump reports the disconnect whenever the peer goes away
	fix.orchestrator.EXPECT().Disconnect("alice", gomock.Any()).AnyTimes()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{}
	header.Set("Cookie", auth.TokenCookie+"="+bearerToken(t, "alice"))

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	req.NoError(err)
	defer func() { _ = conn.Close() }()
	defer func() { _ = resp.Body.Close() }()

	var handle contract.ConnectionHandle
	select {
	case handle = <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("the upgrade never reached the orchestrator")
	}

	// A frame pushed into the handle must reach the dialer verbatim
	frame := `{"type":"message","data":{"senderId":"bob","body":"hello"}}`
	req.NoError(handle.Push([]byte(frame)))

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	kind, received, err := conn.ReadMessage()
	req.NoError(err)
	req.Equal(websocket.TextMessage, kind)
	req.JSONEq(frame, string(received))
}

func TestRouter_WebsocketRejectsAnonymous(t *testing.T) {
	req := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fix := newRouterFixture(t, ctrl)
	fix.orchestrator.EXPECT().Connect(gomock.Any(), gomock.Any()).Times(0)

	srv := httptest.NewServer(fix.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)

	req.Error(err)
	req.Nil(conn)
	req.NotNil(resp)
	defer func() { _ = resp.Body.Close() }()
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}
