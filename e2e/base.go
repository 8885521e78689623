package e2e

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests.
// Without a target server there is nothing to test end to end.
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerURL == "" {
		s.T().Skip("SERVER_URL not set, skipping end-to-end suite")
	}
}

// HTTPClient initializes an HTTP client with logging, colors, and JSON debugging
func (s *BaseSuite) HTTPClient(t *testing.T, name string) *http.Client {
	// 1. Print a colorized header for the step in logs
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)

	// 2. Wrap the default transport to log every call
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &loggingTransport{
			t:         t,
			debugJSON: s.Config.DebugJSON,
		},
	}
}

// loggingTransport logs each round trip; full bodies when E2E_DEBUG_JSON is enabled.
type loggingTransport struct {
	t         *testing.T
	debugJSON bool
}

func (l *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	var requestBody []byte
	if l.debugJSON && req.Body != nil {
		requestBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(requestBody))
	}

	resp, err := http.DefaultTransport.RoundTrip(req)

	logBuilder := strings.Builder{}
	statusLabel := "transport error"
	if resp != nil {
		statusLabel = resp.Status
	}
	fmt.Fprintf(&logBuilder, "HTTP %s %s [%s] in %v", req.Method, req.URL.Path, statusLabel, time.Since(start))

	if l.debugJSON {
		fmt.Fprintln(&logBuilder, "\nREQUEST:")
		logBuilder.Write(requestBody)
		if err != nil {
			fmt.Fprintln(&logBuilder, "\nERROR:", err)
		} else {
			responseBody, _ := io.ReadAll(resp.Body)
			resp.Body = io.NopCloser(bytes.NewReader(responseBody))
			fmt.Fprintln(&logBuilder, "\nRESPONSE:")
			logBuilder.Write(responseBody)
		}
	}
	l.t.Log(logBuilder.String())
	return resp, err
}

// Register opens a throwaway account and returns its session token.
func (s *BaseSuite) Register(client *http.Client, email, password string) string {
	resp := s.PostJSON(client, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	defer func() { _ = resp.Body.Close() }()
	s.Require().Equal(http.StatusCreated, resp.StatusCode, "registration failed for "+email)

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Require().NotEmpty(body.Data.Token)
	return body.Data.Token
}

// PostJSON sends payload to path; token (if any) rides the Authorization header.
func (s *BaseSuite) PostJSON(client *http.Client, path, token string, payload any) *http.Response {
	body, err := json.Marshal(payload)
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPost, s.Config.ServerURL+path, bytes.NewReader(body))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	s.Require().NoError(err)
	return resp
}

// GetJSON fetches path and decodes the success envelope's data into out.
func (s *BaseSuite) GetJSON(client *http.Client, path, token string, out any) {
	req, err := http.NewRequest(http.MethodGet, s.Config.ServerURL+path, nil)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()
	s.Require().Equal(http.StatusOK, resp.StatusCode, "GET "+path)

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&envelope))
	s.Require().NoError(json.Unmarshal(envelope.Data, out))
}
