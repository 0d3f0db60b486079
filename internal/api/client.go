package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aleksandrbar00/kulai-app/internal/auth"
)

// TokenSource supplies bearer tokens for authenticated requests.
// *auth.Source satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// Client talks to the lesson service. It owns the wire contract and nothing
// else: no lesson rules live here beyond request/response shaping.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger attaches a logger for request tracing.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithHTTPClient replaces the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Client for the service at baseURL. tokens may be nil for
// clients that only issue unauthenticated calls (login).
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (auth.Tokens, error) {
	body := map[string]string{"username": username, "password": password}
	var tok auth.Tokens
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &tok, false); err != nil {
		return auth.Tokens{}, err
	}
	if tok.AccessToken == "" {
		return auth.Tokens{}, &ErrMalformedPayload{Reason: "login response missing access_token"}
	}
	return tok, nil
}

// RefreshTokens exchanges a refresh token for a new pair. Shaped as an
// auth.RefreshFunc so it can be wired straight into auth.NewSource.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (auth.Tokens, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var tok auth.Tokens
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", body, &tok, false); err != nil {
		return auth.Tokens{}, err
	}
	if tok.AccessToken == "" {
		return auth.Tokens{}, &ErrMalformedPayload{Reason: "refresh response missing access_token"}
	}
	if tok.RefreshToken == "" {
		// Server rotated only the access token; keep the old refresh token.
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

// CreateLesson creates a new session on the server and returns the full
// validated payload.
func (c *Client) CreateLesson(ctx context.Context, req CreateLessonRequest) (*LessonPayload, error) {
	return c.lessonPayload(ctx, http.MethodPost, "/lessons", req)
}

// GetLesson fetches the current server-side state of a session.
func (c *Client) GetLesson(ctx context.Context, id int) (*LessonPayload, error) {
	return c.lessonPayload(ctx, http.MethodGet, fmt.Sprintf("/lessons/%d", id), nil)
}

// SubmitAnswer posts one answer and returns the authoritative verdict.
func (c *Client) SubmitAnswer(ctx context.Context, lessonID, answerID int) (*SubmitAnswerResult, error) {
	var res SubmitAnswerResult
	path := fmt.Sprintf("/lessons/%d/answer", lessonID)
	if err := c.do(ctx, http.MethodPost, path, SubmitAnswerRequest{AnswerID: answerID}, &res, true); err != nil {
		return nil, err
	}
	return &res, nil
}

// History fetches one page of the learner's session history.
func (c *Client) History(ctx context.Context, page, limit int) (*HistoryPage, error) {
	var res HistoryPage
	path := fmt.Sprintf("/lessons/my-history?page=%d&limit=%d", page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &res, true); err != nil {
		return nil, err
	}
	return &res, nil
}

// QuestionTree fetches the category → subcategory → question bank tree.
func (c *Client) QuestionTree(ctx context.Context) ([]Category, error) {
	var res []Category
	if err := c.do(ctx, http.MethodGet, "/questions/all", nil, &res, true); err != nil {
		return nil, err
	}
	return res, nil
}

// lessonPayload runs a request whose response is a full session payload,
// validating it structurally before returning.
func (c *Client) lessonPayload(ctx context.Context, method, path string, body any) (*LessonPayload, error) {
	var raw json.RawMessage
	if err := c.do(ctx, method, path, body, &raw, true); err != nil {
		return nil, err
	}
	if err := validateLessonPayload(raw); err != nil {
		return nil, err
	}
	var payload LessonPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ErrMalformedPayload{Reason: "decode session payload", Err: err}
	}
	return &payload, nil
}

// do runs one request against the service. Authenticated requests that come
// back 401 are replayed exactly once after a token refresh.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var token string
	if authed {
		if c.tokens == nil {
			return auth.ErrNotLoggedIn
		}
		t, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		token = t
	}

	status, raw, err := c.roundTrip(ctx, method, path, body, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && authed {
		c.log.Debug().Str("path", path).Msg("token rejected, refreshing once")
		token, err = c.tokens.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		status, raw, err = c.roundTrip(ctx, method, path, body, token)
		if err != nil {
			return err
		}
	}

	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status < 200 || status > 299:
		c.log.Error().Int("status", status).Str("path", path).Msg("request failed")
		return &StatusError{Code: status, Body: truncate(string(raw), 200)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ErrMalformedPayload{Reason: fmt.Sprintf("decode %s response", path), Err: err}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, token string) (int, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsNotFound reports whether err represents a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
