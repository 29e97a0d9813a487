package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careline/message-dispatch/internal/auth"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(&Config{
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func authedCtx() context.Context {
	return auth.WithUserContext(context.Background(), &auth.Context{
		OrganisationID:  1,
		ProviderAPIKey:  "tenant-key",
		ProviderPhoneID: "phone-1",
	})
}

func TestNewClient_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		client, err := NewClient(nil)
		assert.Error(t, err)
		assert.Nil(t, client)
	})

	t.Run("base url is required", func(t *testing.T) {
		client, err := NewClient(&Config{})
		assert.Error(t, err)
		assert.Nil(t, client)
	})

	t.Run("defaults are applied", func(t *testing.T) {
		client, err := NewClient(&Config{BaseURL: "http://localhost:8081"})
		require.NoError(t, err)
		assert.Equal(t, 10*time.Second, client.config.Timeout)
		assert.Equal(t, 5, client.config.CircuitBreakerThreshold)
	})
}

func TestClient_SendToContact(t *testing.T) {
	var gotAuth, gotPhoneID string
	var gotBody sendToContactRequest

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/messages/contact", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotPhoneID = r.Header.Get("X-Phone-Id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(SendAck{MessageID: "m-1", Status: "sent", SentAt: time.Now()})
	})

	client := newTestClient(t, srv.URL)
	ack, err := client.SendToContact(authedCtx(), "tmpl-1", "glific-42", []string{"Asha", "Friday"})
	require.NoError(t, err)

	assert.Equal(t, "m-1", ack.MessageID)
	assert.Equal(t, "tenant-key", gotAuth)
	assert.Equal(t, "phone-1", gotPhoneID)
	assert.Equal(t, "tmpl-1", gotBody.TemplateID)
	assert.Equal(t, "glific-42", gotBody.ContactID)
	assert.Equal(t, []string{"Asha", "Friday"}, gotBody.Parameters)
}

func TestClient_SendToGroup(t *testing.T) {
	var gotBody sendToGroupRequest

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/messages/group", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(SendAck{MessageID: "m-2", Status: "sent"})
	})

	client := newTestClient(t, srv.URL)
	ack, err := client.SendToGroup(authedCtx(), "group-7", "tmpl-1", []string{"Friday"})
	require.NoError(t, err)

	assert.Equal(t, "m-2", ack.MessageID)
	assert.Equal(t, "group-7", gotBody.GroupID)
}

func TestClient_GetContactGroupContacts(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/contact-groups/group-7/contacts", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "500", r.URL.Query().Get("size"))
		json.NewEncoder(w).Encode(map[string][]GroupContact{
			"contacts": {{ID: "c-1", Phone: "+911234567890", Name: "Asha"}},
		})
	})

	client := newTestClient(t, srv.URL)
	contacts, err := client.GetContactGroupContacts(authedCtx(), "group-7", 2, 500)
	require.NoError(t, err)

	require.Len(t, contacts, 1)
	assert.Equal(t, "c-1", contacts[0].ID)
}

func TestClient_GetContactByPhone(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/v1/contacts", r.URL.Path)
			// The + must travel escaped or it decodes to a space.
			assert.Equal(t, "phone=%2B911234567890", r.URL.RawQuery)
			assert.Equal(t, "+911234567890", r.URL.Query().Get("phone"))
			json.NewEncoder(w).Encode(Contact{ID: "glific-42", Phone: "+911234567890"})
		})

		client := newTestClient(t, srv.URL)
		contact, err := client.GetContactByPhone(authedCtx(), "+911234567890")
		require.NoError(t, err)
		assert.Equal(t, "glific-42", contact.ID)
	})

	t.Run("provider 404 maps to not found", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		client := newTestClient(t, srv.URL)
		_, err := client.GetContactByPhone(authedCtx(), "+910000000000")
		assert.ErrorIs(t, err, ErrContactNotFound)
	})

	t.Run("empty body maps to not found", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(Contact{})
		})

		client := newTestClient(t, srv.URL)
		_, err := client.GetContactByPhone(authedCtx(), "+910000000000")
		assert.ErrorIs(t, err, ErrContactNotFound)
	})
}

func TestClient_CircuitBreaker(t *testing.T) {
	client, err := NewClient(&Config{
		BaseURL:                 "http://localhost:8081",
		CircuitBreakerThreshold: 3,
		CircuitBreakerTimeout:   10 * time.Second,
	})
	require.NoError(t, err)

	t.Run("opens after threshold failures", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			client.recordFailure()
		}
		assert.False(t, client.available())
	})

	t.Run("open circuit short-circuits requests", func(t *testing.T) {
		_, err := client.SendToContact(authedCtx(), "tmpl-1", "c-1", nil)
		assert.ErrorIs(t, err, ErrCircuitOpen)
	})

	t.Run("closes again after the timeout", func(t *testing.T) {
		client.circuitOpenUntil.Store(time.Now().Add(-time.Second).Unix())
		assert.True(t, client.available())
	})

	t.Run("success resets the failure streak", func(t *testing.T) {
		srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(SendAck{MessageID: "m-1"})
		})
		ok := newTestClient(t, srv.URL)
		ok.consecutiveFails.Store(2)

		_, err := ok.SendToContact(authedCtx(), "tmpl-1", "c-1", nil)
		require.NoError(t, err)
		assert.Equal(t, int32(0), ok.consecutiveFails.Load())
	})
}

func TestClient_RetriesTransportErrors(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SendAck{MessageID: "m-1"})
	})

	// Point at a dead port first, then nothing to retry against: the
	// client reports the last transport error after exhausting retries.
	client, err := NewClient(&Config{
		BaseURL:    "http://127.0.0.1:1",
		Timeout:    time.Second,
		MaxRetries: 2,
		RetryDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.SendToContact(authedCtx(), "tmpl-1", "c-1", nil)
	assert.Error(t, err)
	assert.Equal(t, int32(3), client.consecutiveFails.Load())

	// A healthy endpoint succeeds with the same settings.
	healthy := newTestClient(t, srv.URL)
	_, err = healthy.SendToContact(authedCtx(), "tmpl-1", "c-1", nil)
	assert.NoError(t, err)
}
