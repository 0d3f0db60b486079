package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token        string
	refreshed    string
	refreshErr   error
	refreshCalls int
}

func (s *staticTokens) Token(ctx context.Context) (string, error) {
	return s.token, nil
}

func (s *staticTokens) Refresh(ctx context.Context) (string, error) {
	s.refreshCalls++
	if s.refreshErr != nil {
		return "", s.refreshErr
	}
	s.token = s.refreshed
	return s.refreshed, nil
}

const validPayload = `{
	"id": 42,
	"title": "Arithmetic",
	"status": "started",
	"correctAnswersCount": 0,
	"timeRemaining": 600,
	"questions": [
		{"id": 10, "title": "What is 2 + 2?", "answers": [
			{"id": 1, "title": "4"},
			{"id": 2, "title": "5"}
		]}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens TokenSource) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, tokens)
}

func TestLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `{"access_token": "at", "refresh_token": "rt"}`)
	}, nil)

	tok, err := client.Login(context.Background(), "user", "pass")
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken)
}

func TestLoginMissingToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}, nil)

	_, err := client.Login(context.Background(), "user", "pass")
	var malformed *ErrMalformedPayload
	require.ErrorAs(t, err, &malformed)
}

func TestRefreshTokensKeepsOldRefreshToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh", r.URL.Path)
		fmt.Fprint(w, `{"access_token": "new-at"}`)
	}, nil)

	tok, err := client.RefreshTokens(context.Background(), "old-rt")
	require.NoError(t, err)
	assert.Equal(t, "new-at", tok.AccessToken)
	assert.Equal(t, "old-rt", tok.RefreshToken)
}

func TestGetLessonValidPayload(t *testing.T) {
	tokens := &staticTokens{token: "at"}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/lessons/42", r.URL.Path)
		require.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		fmt.Fprint(w, validPayload)
	}, tokens)

	payload, err := client.GetLesson(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, payload.ID)
	assert.Equal(t, StatusStarted, payload.Status)
	require.Len(t, payload.Questions, 1)
	assert.Len(t, payload.Questions[0].Answers, 2)
}

func TestGetLessonNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}, &staticTokens{token: "at"})

	_, err := client.GetLesson(context.Background(), 7)
	assert.True(t, IsNotFound(err), "expected not-found, got %v", err)
}

func TestGetLessonServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "exploded", http.StatusInternalServerError)
	}, &staticTokens{token: "at"})

	_, err := client.GetLesson(context.Background(), 7)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
}

func TestGetLessonRejectsContractViolations(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `<html>error</html>`},
		{"missing questions", `{"id": 1, "status": "started", "correctAnswersCount": 0, "timeRemaining": 10}`},
		{"empty questions", `{"id": 1, "status": "started", "correctAnswersCount": 0, "timeRemaining": 10, "questions": []}`},
		{"bad status", `{"id": 1, "status": "paused", "correctAnswersCount": 0, "timeRemaining": 10, "questions": [{"id": 1, "title": "q", "answers": [{"id": 1, "title": "a"}]}]}`},
		{"question without answers", `{"id": 1, "status": "started", "correctAnswersCount": 0, "timeRemaining": 10, "questions": [{"id": 1, "title": "q", "answers": []}]}`},
		{"string id", `{"id": "1", "status": "started", "correctAnswersCount": 0, "timeRemaining": 10, "questions": [{"id": 1, "title": "q", "answers": [{"id": 1, "title": "a"}]}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tc.body)
			}, &staticTokens{token: "at"})

			_, err := client.GetLesson(context.Background(), 1)
			var malformed *ErrMalformedPayload
			require.ErrorAs(t, err, &malformed, "body %q must be rejected", tc.body)
		})
	}
}

func TestExpiredTokenRefreshedAndReplayedOnce(t *testing.T) {
	tokens := &staticTokens{token: "stale", refreshed: "fresh"}
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, validPayload)
	}, tokens)

	payload, err := client.GetLesson(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, payload.ID)
	assert.Equal(t, 1, tokens.refreshCalls)
	assert.Equal(t, []string{"Bearer stale", "Bearer fresh"}, seen)
}

func TestPersistentUnauthorized(t *testing.T) {
	tokens := &staticTokens{token: "stale", refreshed: "still-bad"}
	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}, tokens)

	_, err := client.GetLesson(context.Background(), 42)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 2, requests, "exactly one replay after refresh")
	assert.Equal(t, 1, tokens.refreshCalls)
}

func TestFailedRefreshSurfacesUnauthorized(t *testing.T) {
	tokens := &staticTokens{token: "stale", refreshErr: errors.New("refresh token expired")}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, tokens)

	_, err := client.GetLesson(context.Background(), 42)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestSubmitAnswer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/lessons/42/answer", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `{"isCorrect": true, "correctAnswerId": 1, "isLastQuestion": false, "score": 3, "timeRemaining": 514}`)
	}, &staticTokens{token: "at"})

	res, err := client.SubmitAnswer(context.Background(), 42, 1)
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 1, res.CorrectAnswerID)
	assert.Equal(t, 3, res.Score)
	assert.Equal(t, 514, res.TimeRemaining)
}

func TestHistoryPagination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/lessons/my-history", r.URL.Path)
		require.Equal(t, "3", r.URL.Query().Get("page"))
		require.Equal(t, "10", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"lessons": [], "total": 25, "page": 3, "totalPages": 3}`)
	}, &staticTokens{token: "at"})

	page, err := client.History(context.Background(), 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 25, page.Total)
}

func TestAuthedRequestWithoutTokenSource(t *testing.T) {
	client := New("http://localhost:0", nil)
	_, err := client.GetLesson(context.Background(), 1)
	require.Error(t, err)
}
