package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"siteqa/pkg/metrics"
	"siteqa/pkg/vectorstore"
	"siteqa/retrieval"
)

type fakeService struct {
	indexURL   string
	indexPages int
	indexErr   error

	askTurns [][]retrieval.Turn
	askErr   error
	fallback bool

	removed []string
	meta    *vectorstore.Metadata
}

func (f *fakeService) Indexing(_ context.Context, rawURL string, maxPages int) (int, error) {
	f.indexURL = rawURL
	f.indexPages = maxPages
	if f.indexErr != nil {
		return 0, f.indexErr
	}
	return 7, nil
}

func (f *fakeService) Ask(_ context.Context, question string, turns []retrieval.Turn) (*retrieval.Result, error) {
	f.askTurns = append(f.askTurns, turns)
	if f.askErr != nil {
		return nil, f.askErr
	}
	if f.fallback {
		return &retrieval.Result{Answer: retrieval.FallbackAnswer, Fallback: true}, nil
	}
	return &retrieval.Result{
		Answer:  "answer to " + question,
		Matches: []vectorstore.Match{{Text: "passage", Score: 0.9}},
	}, nil
}

func (f *fakeService) ClearIndex(context.Context) ([]string, error) {
	return f.removed, nil
}

func (f *fakeService) Summary(context.Context) (*vectorstore.Metadata, error) {
	if f.meta == nil {
		return nil, vectorstore.ErrNoIndex
	}
	return f.meta, nil
}

func newTestServer(t *testing.T, svc *fakeService) (*Server, *httptest.Server) {
	s := NewServer(svc, metrics.New(), zaptest.NewLogger(t), Options{DefaultMaxPages: 10})
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, method, url, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestIndexEndpoint(t *testing.T) {
	svc := &fakeService{}
	_, ts := newTestServer(t, svc)

	resp, body := do(t, http.MethodPost, ts.URL+"/index", `{"url":"https://example.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out IndexResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 7, out.Chunks)
	assert.Equal(t, "https://example.com", svc.indexURL)
	assert.Equal(t, 10, svc.indexPages, "default max pages applied")
}

func TestIndexEndpoint_ErrorStatus(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: %q", retrieval.ErrInvalidURL, "x"), http.StatusBadRequest},
		{retrieval.ErrInvalidMaxPages, http.StatusBadRequest},
		{fmt.Errorf("%w: 1 pages crawled", retrieval.ErrNoUsableContent), http.StatusUnprocessableEntity},
		{fmt.Errorf("failed to embed chunks: %w", errors.New("quota")), http.StatusBadGateway},
		{fmt.Errorf("failed to save index: %w", vectorstore.ErrNoPath), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			_, ts := newTestServer(t, &fakeService{indexErr: tc.err})

			resp, body := do(t, http.MethodPost, ts.URL+"/index", `{"url":"https://example.com","max_pages":2}`)
			assert.Equal(t, tc.want, resp.StatusCode)

			var out errorResponse
			require.NoError(t, json.Unmarshal(body, &out))
			assert.Equal(t, tc.err.Error(), out.Error)
		})
	}
}

func TestIndexEndpoint_BadBody(t *testing.T) {
	_, ts := newTestServer(t, &fakeService{})

	resp, _ := do(t, http.MethodPost, ts.URL+"/index", `{"url":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSummaryEndpoint(t *testing.T) {
	svc := &fakeService{}
	_, ts := newTestServer(t, svc)

	resp, _ := do(t, http.MethodGet, ts.URL+"/index", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	svc.meta = &vectorstore.Metadata{SourceURL: "https://example.com", ChunkCount: 3}
	resp, body := do(t, http.MethodGet, ts.URL+"/index", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"chunk_count":3`)
}

func TestClearEndpoint(t *testing.T) {
	svc := &fakeService{}
	_, ts := newTestServer(t, svc)

	resp, body := do(t, http.MethodDelete, ts.URL+"/index", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"removed":[]}`, string(body))

	svc.removed = []string{"data/site_index.index", "data/chunks.texts.db"}
	_, body = do(t, http.MethodDelete, ts.URL+"/index", "")
	assert.JSONEq(t, `{"removed":["data/site_index.index","data/chunks.texts.db"]}`, string(body))
}

func TestSessionLifecycle(t *testing.T) {
	svc := &fakeService{}
	s, ts := newTestServer(t, svc)

	resp, body := do(t, http.MethodPost, ts.URL+"/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, 1, s.Sessions().Len())

	askURL := ts.URL + "/sessions/" + created.ID + "/ask"
	resp, body = do(t, http.MethodPost, askURL, `{"question":"What do you sell?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ask AskResponse
	require.NoError(t, json.Unmarshal(body, &ask))
	assert.Equal(t, "answer to What do you sell?", ask.Answer)
	assert.Len(t, ask.Matches, 1)

	_, _ = do(t, http.MethodPost, askURL, `{"question":"And shipping?"}`)
	require.Len(t, svc.askTurns, 2)
	assert.Empty(t, svc.askTurns[0])
	require.Len(t, svc.askTurns[1], 1)
	assert.Equal(t, "What do you sell?", svc.askTurns[1][0].Question)

	resp, body = do(t, http.MethodGet, ts.URL+"/sessions/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"question":"And shipping?"`)

	resp, _ = do(t, http.MethodDelete, ts.URL+"/sessions/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, ts.URL+"/sessions/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAsk_FailureDoesNotRecordTurn(t *testing.T) {
	svc := &fakeService{askErr: fmt.Errorf("failed to generate answer: %w", errors.New("llm down"))}
	s, ts := newTestServer(t, svc)
	session := s.Sessions().Create()

	resp, _ := do(t, http.MethodPost, ts.URL+"/sessions/"+session.ID+"/ask", `{"question":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Zero(t, session.Len())

	svc.askErr = vectorstore.ErrNoIndex
	resp, _ = do(t, http.MethodPost, ts.URL+"/sessions/"+session.ID+"/ask", `{"question":"hi"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	svc.askErr = retrieval.ErrEmptyQuestion
	resp, _ = do(t, http.MethodPost, ts.URL+"/sessions/"+session.ID+"/ask", `{"question":" "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, session.Len())
}

func TestAsk_FallbackIsRecorded(t *testing.T) {
	svc := &fakeService{fallback: true}
	s, ts := newTestServer(t, svc)
	session := s.Sessions().Create()

	resp, body := do(t, http.MethodPost, ts.URL+"/sessions/"+session.ID+"/ask", `{"question":"weather?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ask AskResponse
	require.NoError(t, json.Unmarshal(body, &ask))
	assert.True(t, ask.Fallback)
	assert.Equal(t, retrieval.FallbackAnswer, ask.Answer)
	assert.NotNil(t, ask.Matches)
	assert.Equal(t, 1, session.Len())
}

func TestAsk_UnknownSession(t *testing.T) {
	_, ts := newTestServer(t, &fakeService{})

	resp, _ := do(t, http.MethodPost, ts.URL+"/sessions/nope/ask", `{"question":"hi"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := newTestServer(t, &fakeService{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	s := NewServer(&fakeService{}, nil, zaptest.NewLogger(t), Options{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	assert.NoError(t, <-done)
}
