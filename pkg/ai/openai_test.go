package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1", Logger: zerolog.Nop()})
	require.NoError(t, err)
	return client
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{})
	require.Error(t, err)
}

func TestGoodbyeFallsBackOnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	})

	require.Equal(t, FallbackGoodbye, client.Goodbye(context.Background(), "김건우", 1))
}

func TestGoodbyeReturnsGeneratedText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" 건우야, 푹 쉬어! "},"finish_reason":"stop"}]}`))
	})

	require.Equal(t, "건우야, 푹 쉬어!", client.Goodbye(context.Background(), "김건우", 1))
}

func TestSearchWrapsFailures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"down"}}`, http.StatusBadGateway)
	})

	_, err := client.Search(context.Background(), "menu")
	require.ErrorIs(t, err, ErrSearchFailed)
}

func TestParseSearchResponseEnvelope(t *testing.T) {
	result := parseSearchResponse("```json\n{\"text\":\"• 현미밥\",\"sources\":[{\"title\":\"학교\",\"uri\":\"https://a\"},{\"title\":\"\",\"uri\":\"https://b\"}]}\n```")
	require.Equal(t, "• 현미밥", result.Text)
	require.Equal(t, []Citation{{Title: "학교", URI: "https://a"}}, result.Citations)
}

func TestParseSearchResponsePlainText(t *testing.T) {
	result := parseSearchResponse("등록된 정보가 없습니다")
	require.Equal(t, "등록된 정보가 없습니다", result.Text)
	require.Empty(t, result.Citations)
}

func TestParseSearchResponseKeepsOnlyWebSources(t *testing.T) {
	result := parseSearchResponse(`{"text":"• 잡곡밥","sources":[` +
		`{"title":"학교 홈페이지","uri":"https://school.example/meal"},` +
		`{"title":"중복","uri":"https://school.example/meal"},` +
		`{"title":"상대 경로","uri":"/meal"},` +
		`{"title":"스크립트","uri":"javascript:alert(1)"},` +
		`{"title":"교육청","uri":"http://edu.example/notice"}]}`)
	require.Equal(t, []Citation{
		{Title: "학교 홈페이지", URI: "https://school.example/meal"},
		{Title: "교육청", URI: "http://edu.example/notice"},
	}, result.Citations)
}
