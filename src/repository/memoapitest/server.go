// Package memoapitest provides an in-memory Memo API for tests.
package memoapitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cat-board/src/domain"
)

// Server is a fake of GET/POST /memos and DELETE /memos/{id}
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	memos    []domain.Memo
	nextID   int64
	now      func() time.Time
	token    string
	listGate chan struct{}

	// FailStatus forces every response to this status when non-zero
	FailStatus atomic.Int32

	ListCalls   atomic.Int32
	CreateCalls atomic.Int32
	DeleteCalls atomic.Int32
}

// NewServer starts a fake API pre-seeded with memos
func NewServer(seed ...domain.Memo) *Server {
	s := &Server{
		nextID: 1,
		now:    func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) },
	}
	for _, m := range seed {
		s.memos = append(s.memos, m)
		if m.ID >= s.nextID {
			s.nextID = m.ID + 1
		}
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// RequireToken makes every request require "Bearer <token>"
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// HoldLists blocks list responses until the returned func is called
func (s *Server) HoldLists() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.listGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.listGate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Memos returns a copy of the stored memos
func (s *Server) Memos() []domain.Memo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Memo, len(s.memos))
	copy(out, s.memos)
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	token, gate := s.token, s.listGate
	s.mu.Unlock()

	if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/memos" && r.Method == http.MethodGet:
		s.ListCalls.Add(1)
		if gate != nil {
			<-gate
		}
		if s.fail(w) {
			return
		}
		writeJSON(w, http.StatusOK, s.Memos())

	case path == "/memos" && r.Method == http.MethodPost:
		s.CreateCalls.Add(1)
		if s.fail(w) {
			return
		}
		var req domain.CreateMemoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request format", "message": err.Error()})
			return
		}
		if req.IsBlank() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Failed to create memo", "message": "content is required"})
			return
		}
		s.mu.Lock()
		memo := domain.Memo{
			ID:        s.nextID,
			Content:   req.Content,
			CreatedAt: s.now().Add(time.Duration(s.nextID) * time.Minute).Format(time.RFC3339),
		}
		s.nextID++
		s.memos = append(s.memos, memo)
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, memo)

	case strings.HasPrefix(path, "/memos/") && r.Method == http.MethodDelete:
		s.DeleteCalls.Add(1)
		if s.fail(w) {
			return
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(path, "/memos/"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid memo ID"})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, m := range s.memos {
			if m.ID == id {
				s.memos = append(s.memos[:i], s.memos[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Memo not found"})

	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Route not found"})
	}
}

func (s *Server) fail(w http.ResponseWriter) bool {
	status := int(s.FailStatus.Load())
	if status == 0 {
		return false
	}
	writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
