package rules

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPExecutor_ExecuteScheduleRule(t *testing.T) {
	scheduledAt := time.Date(2026, 9, 4, 10, 0, 0, 0, time.UTC)

	t.Run("returns the computed schedule", func(t *testing.T) {
		var gotBody evalRequest
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/v1/rules/schedule", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			json.NewEncoder(w).Encode(map[string]time.Time{"scheduled_at": scheduledAt})
		})

		executor := NewHTTPExecutor(Config{BaseURL: srv.URL})
		result, err := executor.ExecuteScheduleRule(context.Background(), "Enrolment", 100, "visitDate.plusDays(2)")
		require.NoError(t, err)

		assert.True(t, result.Equal(scheduledAt))
		assert.Equal(t, "Enrolment", gotBody.EntityType)
		assert.Equal(t, int64(100), gotBody.EntityID)
		assert.Equal(t, "visitDate.plusDays(2)", gotBody.Rule)
	})

	t.Run("missing date is a rule failure", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{})
		})

		executor := NewHTTPExecutor(Config{BaseURL: srv.URL})
		_, err := executor.ExecuteScheduleRule(context.Background(), "Enrolment", 100, "badRule()")
		assert.ErrorIs(t, err, ErrRuleFailed)
	})

	t.Run("engine error is a rule failure", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":"syntax error"}`))
		})

		executor := NewHTTPExecutor(Config{BaseURL: srv.URL})
		_, err := executor.ExecuteScheduleRule(context.Background(), "Enrolment", 100, "badRule(")
		assert.ErrorIs(t, err, ErrRuleFailed)
	})
}

func TestHTTPExecutor_ExecuteMessageRule(t *testing.T) {
	t.Run("returns the rendered parameters", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/v1/rules/message", r.URL.Path)
			json.NewEncoder(w).Encode(map[string][]string{"parameters": {"Asha", "Friday", "10:00"}})
		})

		executor := NewHTTPExecutor(Config{BaseURL: srv.URL})
		params, err := executor.ExecuteMessageRule(context.Background(), "Enrolment", 100, "messageParams()")
		require.NoError(t, err)
		assert.Equal(t, []string{"Asha", "Friday", "10:00"}, params)
	})

	t.Run("empty parameter list is allowed", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string][]string{"parameters": {}})
		})

		executor := NewHTTPExecutor(Config{BaseURL: srv.URL})
		params, err := executor.ExecuteMessageRule(context.Background(), "Subject", 100, "noParams()")
		require.NoError(t, err)
		assert.Empty(t, params)
	})

	t.Run("unreachable engine surfaces a transport error", func(t *testing.T) {
		executor := NewHTTPExecutor(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
		_, err := executor.ExecuteMessageRule(context.Background(), "Subject", 100, "params()")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrRuleFailed)
	})
}
