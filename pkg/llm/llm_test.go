package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	messages []llms.MessageContent
	reply    string
	err      error
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.reply}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLangchainClient_Complete(t *testing.T) {
	model := &fakeModel{reply: "  Paris.\n"}
	client := NewLangchainClient(model, 0.2)

	answer, err := client.Complete(context.Background(), "be brief", "capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, llms.TextContent{Text: "capital of France?"}, model.messages[1].Parts[0])
}

func TestLangchainClient_NoSystem(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	client := NewLangchainClient(model, 0)

	_, err := client.Complete(context.Background(), "", "hello")
	require.NoError(t, err)
	require.Len(t, model.messages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[0].Role)
}

func TestLangchainClient_Error(t *testing.T) {
	client := NewLangchainClient(&fakeModel{err: errors.New("unavailable")}, 0)

	_, err := client.Complete(context.Background(), "sys", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
}

func TestGeminiClient_Complete(t *testing.T) {
	var got generateRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":" The site sells "},{"text":"tea. "}]}}]}`))
	}))
	defer srv.Close()

	client, err := NewGeminiClient(GeminiConfig{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	answer, err := client.Complete(context.Background(), "rules", "what does it sell?")
	require.NoError(t, err)

	assert.Equal(t, "The site sells tea.", answer)
	assert.Equal(t, "/models/"+DefaultGeminiModel+":generateContent", path)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "rules", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "what does it sell?", got.Contents[0].Parts[0].Text)
}

func TestGeminiClient_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client, err := NewGeminiClient(GeminiConfig{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "", "q")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewGeminiClient(GeminiConfig{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(GeminiConfig{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
