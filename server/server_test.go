package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_blog_pipeline/generator"
	"auto_blog_pipeline/logging"
)

type fakeLLM struct {
	reply string
	calls int
}

func (f *fakeLLM) Complete(context.Context, generator.Prompt) (string, error) {
	f.calls++
	return f.reply, nil
}

func newTestServer(t *testing.T, llm generator.LLMClient) *httptest.Server {
	t.Helper()
	srv, err := New(llm, logging.Discard())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) sessionResp {
	t.Helper()
	var out sessionResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSessionLifecycle(t *testing.T) {
	llm := &fakeLLM{reply: `{"revised_content": "line one\nline two, tighter", "changes_made": "Tightened line 2.", "lines_affected": "2"}`}
	ts := newTestServer(t, llm)

	resp := post(t, ts.URL+"/api/sessions", `{"content": "line one\nline two"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	created := decode(t, resp)
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, "line one\nline two", created.Content)

	resp = post(t, ts.URL+"/api/sessions/"+created.SessionID, `{"line": 2, "comment": "tighter"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	revised := decode(t, resp)
	assert.Equal(t, "line one\nline two, tighter", revised.Content)
	require.Len(t, revised.History, 1)
	assert.Equal(t, 2, revised.History[0].Line)
	assert.Equal(t, "Tightened line 2.", revised.History[0].Result.ChangesMade)

	getResp, err := http.Get(ts.URL + "/api/sessions/" + created.SessionID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, revised.Content, decode(t, getResp).Content)
}

func TestSessionCreate_Validation(t *testing.T) {
	ts := newTestServer(t, &fakeLLM{})

	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/sessions", `{"content": "  "}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/sessions", `not json`).StatusCode)

	resp, err := http.Get(ts.URL + "/api/sessions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRevise_Errors(t *testing.T) {
	llm := &fakeLLM{reply: `{"revised_content": "", "changes_made": "none"}`}
	ts := newTestServer(t, llm)
	id := decode(t, post(t, ts.URL+"/api/sessions", `{"content": "text"}`)).SessionID

	assert.Equal(t, http.StatusNotFound, post(t, ts.URL+"/api/sessions/missing", `{"line": 1, "comment": "x"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/sessions/"+id, `{"line": 0, "comment": "x"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/sessions/"+id, `{"line": 1, "comment": " "}`).StatusCode)
	assert.Equal(t, 0, llm.calls)

	assert.Equal(t, http.StatusBadGateway, post(t, ts.URL+"/api/sessions/"+id, `{"line": 1, "comment": "fix"}`).StatusCode)
	assert.Equal(t, 1, llm.calls)
}

func TestRender(t *testing.T) {
	ts := newTestServer(t, &fakeLLM{})
	resp := post(t, ts.URL+"/api/render", `{"markdown": "---\ntitle: Hello\n---\n\n## Part\n"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out renderResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out.HTML, "<h1>Hello</h1>")
	assert.Contains(t, out.HTML, "<h2>Part</h2>")
}

func TestNew_RequiresClient(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}
