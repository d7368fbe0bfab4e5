package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravenhq/raven-platform/internal/conversations"
)

func newChatServer(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(f.svc, nil).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestChatEndpoint(t *testing.T) {
	f := newFixture(nil)
	srv := newChatServer(t, f)

	body := `{"business_id":"biz-1","visitor_id":"v-1","message":"hello there"}`
	resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "conv-1", out.ConversationID)
	assert.Equal(t, "Sure, happy to help.", out.Message)
}

func TestChatEndpointValidation(t *testing.T) {
	f := newFixture(nil)
	srv := newChatServer(t, f)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{{`, http.StatusBadRequest},
		{"missing business", `{"visitor_id":"v-1","message":"hi"}`, http.StatusBadRequest},
		{"missing message", `{"business_id":"biz-1","visitor_id":"v-1"}`, http.StatusBadRequest},
		{"unknown business", `{"business_id":"ghost","visitor_id":"v-1","message":"hi"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestChatEndpointConversationMismatch(t *testing.T) {
	f := newFixture(nil)
	f.conversations.conv = &conversations.Conversation{ID: "conv-9", BusinessID: "other-biz"}
	srv := newChatServer(t, f)

	body := `{"business_id":"biz-1","conversation_id":"conv-9","visitor_id":"v-1","message":"hi"}`
	resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
