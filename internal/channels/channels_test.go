package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailClientSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user@example.com", body["to"])
		assert.Equal(t, "reminders@pittima.app", body["from"])

		json.NewEncoder(w).Encode(map[string]string{"id": "em_123"})
	}))
	defer srv.Close()

	client := NewEmailClient(srv.URL, "test-key", "reminders@pittima.app", false)
	res := client.Send(context.Background(), EmailMessage{
		To:       "user@example.com",
		Subject:  "Deadlines",
		HTMLBody: "<ul><li>car insurance</li></ul>",
	})

	assert.True(t, res.Success)
	assert.Equal(t, "em_123", res.Message)
}

func TestEmailClientProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewEmailClient(srv.URL, "test-key", "reminders@pittima.app", false)
	res := client.Send(context.Background(), EmailMessage{To: "user@example.com"})

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "429")
}

func TestEmailClientNetworkErrorIsResult(t *testing.T) {
	// Unreachable address: the dispatcher must fold the error into the
	// result, never panic or bubble it up.
	client := NewEmailClient("http://127.0.0.1:1", "k", "f@x", false)
	res := client.Send(context.Background(), EmailMessage{To: "user@example.com"})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
}

func TestPushClientSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages:send", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewPushClient(srv.URL, "test-key", false)
	res := client.Send(context.Background(), PushMessage{Token: "tok-1", Title: "Car insurance", Body: "due in 3 days"})

	assert.True(t, res.Success)
	assert.False(t, res.InvalidToken)
}

func TestPushClientInvalidTokenClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		errCode     string
		wantInvalid bool
	}{
		{"not registered", http.StatusNotFound, "NOT_REGISTERED", true},
		{"unregistered", http.StatusNotFound, "UNREGISTERED", true},
		{"invalid argument", http.StatusBadRequest, "INVALID_ARGUMENT", true},
		{"transient quota error", http.StatusTooManyRequests, "QUOTA_EXCEEDED", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]string{"code": tt.errCode, "message": "provider says no"},
				})
			}))
			defer srv.Close()

			client := NewPushClient(srv.URL, "test-key", false)
			res := client.Send(context.Background(), PushMessage{Token: "tok-dead"})

			assert.False(t, res.Success)
			assert.Equal(t, tt.wantInvalid, res.InvalidToken)
		})
	}
}

func TestWhatsAppClientSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "whatsapp", body["messaging_product"])
		assert.Equal(t, "+391234567890", body["to"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": []map[string]string{{"id": "wamid.xyz"}},
		})
	}))
	defer srv.Close()

	client := NewWhatsAppClient(srv.URL, "test-key", false)
	res := client.Send(context.Background(), WhatsAppMessage{To: "+391234567890", Body: "your deadline expires tomorrow"})

	assert.True(t, res.Success)
	assert.Equal(t, "wamid.xyz", res.Message)
}

func TestStubModeNeverTouchesNetwork(t *testing.T) {
	email := NewEmailClient("http://invalid.invalid", "", "f@x", true)
	push := NewPushClient("http://invalid.invalid", "", true)
	wa := NewWhatsAppClient("http://invalid.invalid", "", true)

	assert.True(t, email.Send(context.Background(), EmailMessage{}).Success)
	assert.True(t, push.Send(context.Background(), PushMessage{}).Success)
	assert.True(t, wa.Send(context.Background(), WhatsAppMessage{}).Success)
}
