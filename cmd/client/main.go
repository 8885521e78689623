package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/goccy/go-json"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"chatline/domain"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=http://localhost:8080"`
	Email     string `env:"CHAT_EMAIL,required=true"`
	Password  string `env:"CHAT_PASSWORD,required=true"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles the session lifecycle: login over HTTP, contact listing, then
// the live message stream over WebSocket until Ctrl+C.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open a session.
	token, err := login(ctx, config)
	if err != nil {
		return exitRuntime, err
	}
	log.Info("Logged in", "email", config.Email)

	// 4. Print the contact list.
	if err := printUsers(ctx, config, token); err != nil {
		return exitRuntime, err
	}

	// 5. Open the live stream. The session rides the cookie, exactly like a browser.
	wsURL := strings.Replace(config.ServerURL, "http", "ws", 1) + "/ws"
	header := http.Header{}
	header.Set("Cookie", "token="+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not open the live stream at %s: %w", wsURL, err)
	}
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	// Unblock the read loop when a signal arrives.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	color.Cyan.Printf(">>> Connected to %s (Ctrl+C to quit)\n", config.ServerURL)

	// 6. Message reception loop.
	// This loop runs until the context is canceled or the server closes the connection.
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			// Normal exit if the user triggered a shutdown.
			if ctx.Err() != nil {
				log.Info("Stopping client...")
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("stream error: %w", err)
		}
		printFrame(frame)
	}
}

// login exchanges the credentials for a session token.
func login(ctx context.Context, config Config) (string, error) {
	body, err := json.Marshal(map[string]string{
		"email":    config.Email,
		"password": config.Password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		config.ServerURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not reach the server at %s: %w", config.ServerURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return "", fmt.Errorf("login refused (%d): %s", resp.StatusCode, failure.Error)
	}

	var success struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&success); err != nil {
		return "", err
	}
	return success.Data.Token, nil
}

// printUsers renders the contact list as a table.
func printUsers(ctx context.Context, config Config, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		config.ServerURL+"/api/users", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	var success struct {
		Data []domain.User `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&success); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Email", "Member since"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for _, user := range success.Data {
		table.Append([]string{shortID(user.ID), user.Email, user.CreatedAt.Format(time.DateOnly)})
	}
	table.Render()
	return nil
}

// printFrame renders one live frame: either a message or a presence roster.
func printFrame(frame []byte) {
	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(frame, &envelope); err != nil {
		color.Red.Printf("unreadable frame: %v\n", err)
		return
	}

	switch envelope.Type {
	case "message":
		var msg domain.Message
		if err := json.Unmarshal(envelope.Data, &msg); err != nil {
			return
		}
		line := fmt.Sprintf("[%s] %s: %s",
			msg.CreatedAt.Format(time.TimeOnly), shortID(msg.SenderID), msg.Body)
		if msg.MediaRef != "" {
			line += color.Yellow.Render(" (media " + msg.MediaRef + ")")
		}
		color.Green.Println(line)

	case "online_users":
		var online []string
		if err := json.Unmarshal(envelope.Data, &online); err != nil {
			return
		}
		short := make([]string, 0, len(online))
		for _, id := range online {
			short = append(short, shortID(id))
		}
		color.Gray.Printf("online: %s\n", strings.Join(short, ", "))

	default:
		color.Gray.Printf("frame %s\n", envelope.Type)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
