// Package server exposes revision sessions and HTML previews over HTTP so a
// review UI can drive line comments against a finished post.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"auto_blog_pipeline/generator"
	"auto_blog_pipeline/logging"
	"auto_blog_pipeline/publisher"
	"auto_blog_pipeline/revision"
)

const defaultTimeout = 120 * time.Second

type Server struct {
	llm     generator.LLMClient
	logger  *logging.Logger
	store   *sessionStore
	timeout time.Duration
}

// entry serializes revisions of one session; the store lock only guards the map.
type entry struct {
	mu   sync.Mutex
	sess *revision.Session
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*entry
}

func newStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*entry)}
}

func (s *sessionStore) set(id string, sess *revision.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &entry{sess: sess}
}

func (s *sessionStore) get(id string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	return e, ok
}

func New(llm generator.LLMClient, logger *logging.Logger) (*Server, error) {
	if llm == nil {
		return nil, errors.New("llm client required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		llm:     llm,
		logger:  logger,
		store:   newStore(),
		timeout: defaultTimeout,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions", s.handleSessionCreate)
	mux.HandleFunc("/api/sessions/", s.handleSessionByID)
	mux.HandleFunc("/api/render", s.handleRender)
	return s.logMiddleware(mux)
}

// --- Handlers ---

type sessionCreateReq struct {
	Content string `json:"content"`
}

type sessionResp struct {
	SessionID string          `json:"session_id"`
	Content   string          `json:"content"`
	History   []revision.Turn `json:"history"`
}

type reviseReq struct {
	Line    int    `json:"line"`
	Comment string `json:"comment"`
}

type renderReq struct {
	Markdown string `json:"markdown"`
}

type renderResp struct {
	HTML string `json:"html"`
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req sessionCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}
	id := uuid.NewString()
	sess, err := revision.NewSession(id, req.Content, s.llm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.store.set(id, sess)
	s.logger.Infof("[server] session %s created (%d bytes)", id, len(req.Content))
	writeJSON(w, http.StatusCreated, sessionResp{SessionID: id, Content: sess.Content, History: sess.History})
}

func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	e, ok := s.store.get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	sess := e.sess

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, sessionResp{SessionID: id, Content: sess.Content, History: sess.History})
	case http.MethodPost:
		var req reviseReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Line < 1 {
			http.Error(w, "line must be 1 or greater", http.StatusBadRequest)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		s.logger.Infof("[server] session %s line %d: %s", id, req.Line, revision.Abbreviate(req.Comment))
		if _, err := sess.Revise(ctx, req.Line, req.Comment); err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, revision.ErrEmptyComment) {
				status = http.StatusBadRequest
			}
			s.logger.Warnf("[server] session %s revision failed: %v", id, err)
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, http.StatusOK, sessionResp{SessionID: id, Content: sess.Content, History: sess.History})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req renderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	html, err := publisher.RenderHTML(req.Markdown)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, renderResp{HTML: html})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Infof("[server] %s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}
