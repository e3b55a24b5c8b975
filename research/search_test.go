package research

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_blog_pipeline/config"
	"auto_blog_pipeline/logging"
)

func TestNew_NoKeyDisablesSearch(t *testing.T) {
	assert.Nil(t, New(config.SearchConfig{}, nil))
}

func TestBingSearcher_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "feedback loops", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("count"))
		assert.Equal(t, "Webpages", r.URL.Query().Get("responseFilter"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"webPages":{"value":[{"name":"Loops","url":"https://example.com","snippet":"short loops"}]}}`))
	}))
	defer srv.Close()

	s := New(config.SearchConfig{APIKey: "secret", Endpoint: srv.URL}, srv.Client())
	results, err := s.Search(context.Background(), "feedback loops")

	require.NoError(t, err)
	assert.Equal(t, []Result{{Title: "Loops", URL: "https://example.com", Snippet: "short loops"}}, results)
}

func TestBingSearcher_Search_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := New(config.SearchConfig{APIKey: "bad", Endpoint: srv.URL}, srv.Client())
	_, err := s.Search(context.Background(), "x")
	assert.Error(t, err)
}

type stubSearcher struct {
	calls []string
}

func (s *stubSearcher) Search(_ context.Context, q string) ([]Result, error) {
	s.calls = append(s.calls, q)
	if q == "broken" {
		return nil, errors.New("boom")
	}
	return []Result{{Title: q}}, nil
}

func TestSearchAll_SkipsFailuresAndBlanks(t *testing.T) {
	s := &stubSearcher{}
	results := SearchAll(context.Background(), s, []string{"a", "", "broken", "b"}, logging.Discard())

	assert.Equal(t, []string{"a", "broken", "b"}, s.calls)
	assert.Equal(t, []Result{{Title: "a"}, {Title: "b"}}, results)
}
