package extractor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnct-tools/container-query/internal/domain"
)

func jsonServer(t *testing.T, status int, bodies ...string) (*httptest.Server, *[]string) {
	t.Helper()
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		requests = append(requests, string(b))
		body := bodies[len(bodies)-1]
		if len(requests) <= len(bodies) {
			body = bodies[len(requests)-1]
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

const openAIToolCall = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "test",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "query_container", "arguments": "{\"container_id\":\"abcu1234567\",\"intent\":\"holds\"}"}
      }]
    }
  }]
}`

const openAIText = `{
  "id": "chatcmpl-2",
  "object": "chat.completion",
  "model": "test",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": " Container ABCU1234567 has no holds. "}}]
}`

func newTestOpenAI(t *testing.T, srv *httptest.Server) *OpenAI {
	t.Helper()
	o, err := NewOpenAI(OpenAIConfig{APIKey: "test", Model: "test", BaseURL: srv.URL}, zerolog.Nop())
	require.NoError(t, err)
	return o
}

func TestOpenAI_ExtractToolCall(t *testing.T) {
	srv, requests := jsonServer(t, http.StatusOK, openAIToolCall)

	ex, err := newTestOpenAI(t, srv).Extract(context.Background(), "any holds on abcu1234567?")
	require.NoError(t, err)
	assert.Equal(t, Extraction{ContainerID: "ABCU1234567", Intent: domain.IntentHolds}, ex)

	require.Len(t, *requests, 1)
	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte((*requests)[0]), &sent))
	assert.Equal(t, "auto", sent["tool_choice"])
	tools := sent["tools"].([]any)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, ToolName, fn["name"])
}

func TestOpenAI_ExtractTextReply(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, openAIText)

	ex, err := newTestOpenAI(t, srv).Extract(context.Background(), "hello")
	require.NoError(t, err)
	assert.False(t, ex.Complete())
	assert.Equal(t, "Container ABCU1234567 has no holds.", ex.Reply)
}

func TestOpenAI_NarrateSendsToolResult(t *testing.T) {
	srv, requests := jsonServer(t, http.StatusOK, openAIText)

	text, err := newTestOpenAI(t, srv).Narrate(context.Background(), "holds?",
		Extraction{ContainerID: "ABCU1234567", Intent: domain.IntentHolds},
		map[string]any{"has_holds": false})
	require.NoError(t, err)
	assert.Equal(t, "Container ABCU1234567 has no holds.", text)

	var sent struct {
		Messages []struct {
			Role       string `json:"role"`
			Content    string `json:"content"`
			ToolCallID string `json:"tool_call_id"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal([]byte((*requests)[0]), &sent))
	require.Len(t, sent.Messages, 4)
	assert.Equal(t, "tool", sent.Messages[3].Role)
	assert.JSONEq(t, `{"has_holds":false}`, sent.Messages[3].Content)
}

func TestOpenAI_RateLimitedIsQuotaError(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusTooManyRequests, `{"error":{"message":"Rate limit exceeded","type":"rate_limit_error","code":429}}`)

	_, err := newTestOpenAI(t, srv).Extract(context.Background(), "ABCU1234567")
	var quota *QuotaExceededError
	require.ErrorAs(t, err, &quota)
	assert.Equal(t, "openai", quota.Provider)
}

func TestOpenAI_InvalidArgumentsRejected(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","tool_calls":[{"id":"c","type":"function","function":{"name":"query_container","arguments":"{\"container_id\":\"ABCU1234567\",\"intent\":\"eta\"}"}}]}}]}`)

	_, err := newTestOpenAI(t, srv).Extract(context.Background(), "ABCU1234567 eta?")
	var argErr *ArgumentsError
	assert.ErrorAs(t, err, &argErr)
}

const geminiFunctionCall = `{
  "candidates": [{
    "content": {
      "role": "model",
      "parts": [{"functionCall": {"name": "query_container", "args": {"container_id": "TCLU9876543", "intent": "location"}}}]
    },
    "finishReason": "STOP"
  }]
}`

const geminiText = `{
  "candidates": [{
    "content": {"role": "model", "parts": [{"text": "Container TCLU9876543 is in Block A. "}]},
    "finishReason": "STOP"
  }]
}`

func newTestGemini(t *testing.T, srv *httptest.Server) *Gemini {
	t.Helper()
	g, err := NewGemini(context.Background(), GeminiConfig{APIKey: "test", BaseURL: srv.URL + "/"}, zerolog.Nop())
	require.NoError(t, err)
	return g
}

func TestGemini_ExtractFunctionCall(t *testing.T) {
	srv, requests := jsonServer(t, http.StatusOK, geminiFunctionCall)

	ex, err := newTestGemini(t, srv).Extract(context.Background(), "Where is TCLU9876543?")
	require.NoError(t, err)
	assert.Equal(t, Extraction{ContainerID: "TCLU9876543", Intent: domain.IntentLocation}, ex)
	require.Len(t, *requests, 1)
	assert.Contains(t, (*requests)[0], ToolName)
}

func TestGemini_NarrateReturnsText(t *testing.T) {
	srv, requests := jsonServer(t, http.StatusOK, geminiText)

	text, err := newTestGemini(t, srv).Narrate(context.Background(), "Where is TCLU9876543?",
		Extraction{ContainerID: "TCLU9876543", Intent: domain.IntentLocation},
		map[string]any{"block": "A"})
	require.NoError(t, err)
	assert.Equal(t, "Container TCLU9876543 is in Block A.", text)
	assert.Contains(t, (*requests)[0], "functionResponse")
}

func TestGemini_ResourceExhaustedIsQuotaError(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusTooManyRequests, `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`)

	_, err := newTestGemini(t, srv).Extract(context.Background(), "TCLU9876543")
	var quota *QuotaExceededError
	require.ErrorAs(t, err, &quota)
	assert.Equal(t, "gemini", quota.Provider)
}

func TestNewProviders_RequireKeys(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{}, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewOpenAI(OpenAIConfig{Model: "m"}, zerolog.Nop())
	assert.Error(t, err)
}
