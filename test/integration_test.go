package test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"chatline/domain"
	"chatline/media"
	"chatline/moderation"
	"chatline/observability"
	"chatline/projection"
	"chatline/repositories"
	"chatline/runtime"
	"chatline/runtime/workers"
	"chatline/services"
	"chatline/sink"
	"chatline/web"
)

// censoredWord is the single forbidden word loaded for the scenario, so the
// expected censored output is computable without the embedded lists.
const censoredWord = "fichu"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func Test_Scenario(t *testing.T) {
	req := require.New(t)

	// 1. Boot the whole backend in-process: stores, pipeline and HTTP surface
	srv := bootBackend(t)

	// 2. Two accounts, with their server-side identities
	marker := uuid.NewString()[:8]
	password := "ComplexPass123!"
	aliceToken := register(t, srv.URL, fmt.Sprintf("alice-%s@test.local", marker), password)
	bobToken := register(t, srv.URL, fmt.Sprintf("bob-%s@test.local", marker), password)

	var alice, bob domain.User
	getData(t, srv.URL, "/api/auth/me", aliceToken, &alice)
	getData(t, srv.URL, "/api/auth/me", bobToken, &bob)
	req.NotEqual(alice.ID, bob.ID)

	// 3. A message without text nor media never reaches the store
	resp := postJSON(t, srv.URL, "/api/messages/send/"+bob.ID, aliceToken, map[string]string{"message": ""})
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	req.Equal("Message or media must be provided", decodeError(t, resp))

	// 4. Bob goes live; the roster frame proves his connection is registered
	conn := dialWS(t, srv.URL, bobToken)
	defer conn.Close()
	awaitRoster(t, conn, bob.ID)

	// 5. When Alice posts a message containing a forbidden word
	body := fmt.Sprintf("tu es %s Bob, rendez-vous %s", censoredWord, marker)
	expected := strings.Replace(body, censoredWord, strings.Repeat("*", len([]rune(censoredWord))), 1)

	resp = postJSON(t, srv.URL, "/api/messages/send/"+bob.ID, aliceToken, map[string]string{"message": body})
	req.Equal(http.StatusOK, resp.StatusCode)
	var sent domain.Message
	decodeData(t, resp, &sent)
	req.Equal(expected, sent.Body)
	req.Equal(alice.ID, sent.SenderID)

	// Then Bob receives the censored body on his live connection
	received := awaitMessage(t, conn)
	req.Equal(sent.ID, received.ID)
	req.Equal(alice.ID, received.SenderID)
	req.Equal(expected, received.Body)

	// 6. When Alice uploads a picture, the stored bytes are served back intact
	picture := encodePNG(t)
	mediaMsg := postMedia(t, srv.URL, "/api/messages/send/"+bob.ID, aliceToken, "regarde ça", "paysage.png", picture)
	req.True(strings.HasPrefix(mediaMsg.MediaRef, "/uploads/"))
	req.Equal("image/png", mediaMsg.MediaType)

	servedResp, err := http.Get(srv.URL + mediaMsg.MediaRef)
	req.NoError(err)
	defer servedResp.Body.Close()
	req.Equal(http.StatusOK, servedResp.StatusCode)
	served, err := io.ReadAll(servedResp.Body)
	req.NoError(err)
	req.Equal(picture, served)

	// 7. Bob pages the thread: newest first, both messages durable
	var page struct {
		Messages   []domain.Message `json:"messages"`
		NextCursor *string          `json:"nextCursor"`
	}
	getData(t, srv.URL, "/api/messages/"+alice.ID, bobToken, &page)
	req.Len(page.Messages, 2)
	req.Nil(page.NextCursor)
	req.Equal(mediaMsg.ID, page.Messages[0].ID)
	req.Equal(expected, page.Messages[1].Body)

	// 8. The sidebar projection eventually folds the thread in
	sidebarShowsAlice := func() bool {
		var previews []domain.Conversation
		httpReq, err := http.NewRequest(http.MethodGet, srv.URL+"/api/conversations", nil)
		if err != nil {
			return false
		}
		httpReq.Header.Set("Authorization", "Bearer "+bobToken)
		resp, err := http.DefaultClient.Do(httpReq)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || !env.Success {
			return false
		}
		if err := json.Unmarshal(env.Data, &previews); err != nil {
			return false
		}
		preview, found := lo.Find(previews, func(c domain.Conversation) bool {
			return c.CounterpartID == alice.ID
		})
		return found && preview.LastSenderID == alice.ID
	}
	req.Eventually(sidebarShowsAlice, 5*time.Second, 100*time.Millisecond,
		"conversation preview never reached the sidebar")

	// 9. The marker eventually becomes searchable once the index flushed
	searchHits := func() bool {
		httpReq, err := http.NewRequest(http.MethodGet, srv.URL+"/api/messages/search?q="+marker, nil)
		if err != nil {
			return false
		}
		httpReq.Header.Set("Authorization", "Bearer "+bobToken)
		resp, err := http.DefaultClient.Do(httpReq)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || !env.Success {
			return false
		}
		var result struct {
			Total uint64 `json:"total"`
		}
		if err := json.Unmarshal(env.Data, &result); err != nil {
			return false
		}
		return result.Total >= 1
	}
	req.Eventually(searchHits, 10*time.Second, 200*time.Millisecond,
		"indexed message never became searchable")

	// 10. Counters reflect the traffic
	var stats struct {
		MessagesIngested uint64 `json:"messages_ingested"`
		CensoredMessages uint64 `json:"censored_messages"`
		MediaStored      uint64 `json:"media_stored"`
	}
	getData(t, srv.URL, "/api/stats", bobToken, &stats)
	req.GreaterOrEqual(stats.MessagesIngested, uint64(2))
	req.GreaterOrEqual(stats.CensoredMessages, uint64(1))
	req.GreaterOrEqual(stats.MediaStored, uint64(1))
}

// bootBackend assembles the production wiring against throwaway storage.
func bootBackend(t *testing.T) *httptest.Server {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	req.NoError(err)

	monitor := observability.NewMonitor(log)
	supervisor := workers.NewSupervisor(log)
	registry := runtime.NewRegistry()
	orchestrator := runtime.NewOrchestrator(log, supervisor, registry, monitor,
		256, time.Second, 200*time.Millisecond, 500*time.Millisecond, 10)

	messageRepository := repositories.NewMessageRepository(db, log, lo.ToPtr(100))
	userRepository := repositories.NewUserRepository(db)
	index := repositories.NewMessageIndex(blugeWriter, log, 4)
	indexSink := sink.NewIndexSink(index, log, 100*time.Millisecond)
	conversations := projection.NewConversations()
	orchestrator.RegisterSinks(indexSink, conversations)

	moderator, err := moderation.NewModerator([]string{censoredWord}, '*', log)
	req.NoError(err)

	uploadsDir := t.TempDir()
	intake, err := media.NewIntake(log, uploadsDir, "/uploads", media.DefaultMaxBytes, nil)
	req.NoError(err)

	authService := services.NewAuthService(userRepository, time.Hour)
	messageService := services.NewMessageService(log, messageRepository, index, intake,
		moderator, orchestrator, monitor, 2*time.Second)
	userService := services.NewUserService(userRepository)

	router := web.NewRouter(log,
		web.NewAuthHandler(log, authService, time.Hour, false),
		web.NewMessageHandler(log, messageService, conversations, media.DefaultMaxBytes),
		web.NewUserHandler(log, userService),
		web.NewSystemHandler(log, monitor),
		web.NewWSHandler(log, orchestrator, []string{"*"}),
		web.RouterConfig{
			AllowedOrigins:    []string{"*"},
			AuthRatePerMinute: 1000,
			APIRatePerMinute:  1000,
			UploadsDir:        uploadsDir,
		})

	go func() {
		_ = orchestrator.Start(context.Background())
	}()

	srv := httptest.NewServer(router)

	// Clean everything at the end of the test
	t.Cleanup(func() {
		srv.Close()
		orchestrator.Stop()
		req.NoError(indexSink.Close())
		req.NoError(blugeWriter.Close())
		req.NoError(db.Close())
	})

	return srv
}

func register(t *testing.T, baseURL, email, password string) string {
	t.Helper()
	req := require.New(t)

	resp := postJSON(t, baseURL, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	req.Equal(http.StatusCreated, resp.StatusCode)

	var data struct {
		Token string `json:"token"`
	}
	decodeData(t, resp, &data)
	req.NotEmpty(data.Token)
	return data.Token
}

func postJSON(t *testing.T, baseURL, path, token string, payload any) *http.Response {
	t.Helper()
	req := require.New(t)

	body, err := json.Marshal(payload)
	req.NoError(err)
	httpReq, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(body))
	req.NoError(err)
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	req.NoError(err)
	return resp
}

// postMedia sends a multipart message carrying one attachment and returns the
// stored message.
func postMedia(t *testing.T, baseURL, path, token, message, filename string, payload []byte) domain.Message {
	t.Helper()
	req := require.New(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	req.NoError(mw.WriteField("message", message))

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename="%s"`, filename))
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	req.NoError(err)
	_, err = part.Write(payload)
	req.NoError(err)
	req.NoError(mw.Close())

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+path, &body)
	req.NoError(err)
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(httpReq)
	req.NoError(err)
	req.Equal(http.StatusOK, resp.StatusCode)

	var msg domain.Message
	decodeData(t, resp, &msg)
	return msg
}

func getData(t *testing.T, baseURL, path, token string, out any) {
	t.Helper()
	req := require.New(t)

	httpReq, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	req.NoError(err)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	req.NoError(err)
	req.Equal(http.StatusOK, resp.StatusCode)
	decodeData(t, resp, out)
}

func decodeData(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	req := require.New(t)
	defer resp.Body.Close()

	var env envelope
	req.NoError(json.NewDecoder(resp.Body).Decode(&env))
	req.True(env.Success, "expected a success envelope, got error: %s", env.Error)
	if out != nil {
		req.NoError(json.Unmarshal(env.Data, out))
	}
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	req := require.New(t)
	defer resp.Body.Close()

	var env envelope
	req.NoError(json.NewDecoder(resp.Body).Decode(&env))
	req.False(env.Success)
	return env.Error
}

func dialWS(t *testing.T, baseURL, token string) *websocket.Conn {
	t.Helper()
	req := require.New(t)

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	header := http.Header{}
	header.Set("Cookie", "token="+token)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	req.NoError(err)
	if resp != nil {
		defer resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// awaitRoster reads frames until a presence roster lists userID, which proves
// the connection is registered and later messages cannot be missed.
func awaitRoster(t *testing.T, conn *websocket.Conn, userID string) {
	t.Helper()
	req := require.New(t)

	deadline := time.Now().Add(5 * time.Second)
	for {
		req.NoError(conn.SetReadDeadline(deadline))
		_, payload, err := conn.ReadMessage()
		req.NoError(err, "no roster frame for %s before the deadline", userID)

		var frame wsFrame
		req.NoError(json.Unmarshal(payload, &frame))
		if frame.Type != "online_users" {
			continue
		}
		var online []string
		req.NoError(json.Unmarshal(frame.Data, &online))
		if lo.Contains(online, userID) {
			return
		}
	}
}

// awaitMessage reads frames until the next chat message, skipping presence
// updates interleaved on the same connection.
func awaitMessage(t *testing.T, conn *websocket.Conn) domain.Message {
	t.Helper()
	req := require.New(t)

	deadline := time.Now().Add(5 * time.Second)
	for {
		req.NoError(conn.SetReadDeadline(deadline))
		_, payload, err := conn.ReadMessage()
		req.NoError(err, "no message frame before the deadline")

		var frame wsFrame
		req.NoError(json.Unmarshal(payload, &frame))
		if frame.Type != "message" {
			continue
		}
		var msg domain.Message
		req.NoError(json.Unmarshal(frame.Data, &msg))
		return msg
	}
}

// encodePNG produces a small real picture so the magic byte sniffing sees a
// genuine image/png payload.
func encodePNG(t *testing.T) []byte {
	t.Helper()
	req := require.New(t)

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 180, A: 255})
		}
	}

	var buf bytes.Buffer
	req.NoError(png.Encode(&buf, img))
	return buf.Bytes()
}
