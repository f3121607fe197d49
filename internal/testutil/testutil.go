// Package testutil provides shared test helpers: a fake upstream content
// repository and static credential sources.
package testutil

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joycelee/atelier/internal/checksum"
)

// StaticCreds is a fixed credential source for tests.
type StaticCreds struct {
	Repo string
	Tok  string
}

func (c StaticCreds) Repository() string { return c.Repo }
func (c StaticCreds) Token() string      { return c.Tok }

type fakeCommit struct {
	sha     string
	message string
	date    time.Time
	content []byte
}

// FakeRepo emulates the upstream contents/commits API over httptest.
// It enforces the same optimistic-concurrency rule as the real store: an
// update must carry the current blob SHA, a create must carry none.
type FakeRepo struct {
	Server *httptest.Server

	mu       sync.Mutex
	content  []byte       // nil means no file exists
	history  []fakeCommit // newest first
	seq      int
	shasSeen []string // version tokens received on writes, in order
	failPUT  int      // when non-zero, PUT responds with this status
}

// NewFakeRepo starts a fake upstream repository. The server is shut down
// with the test.
func NewFakeRepo(t *testing.T) *FakeRepo {
	t.Helper()
	f := &FakeRepo{}
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/", f.handle)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL to use in place of the real API endpoint.
func (f *FakeRepo) URL() string { return f.Server.URL }

// Seed commits an initial version of the file.
func (f *FakeRepo) Seed(content []byte, message string) {
	f.commit(content, message)
}

// CommitExternal simulates an edit made outside the editor.
func (f *FakeRepo) CommitExternal(content []byte, message string) {
	f.commit(content, message)
}

// BlobSHA returns the current version token, or "" when no file exists.
func (f *FakeRepo) BlobSHA() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.content == nil {
		return ""
	}
	return checksum.Sum(f.content)
}

// Content returns the currently stored bytes.
func (f *FakeRepo) Content() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.content...)
}

// SHAsSeen returns the version tokens clients attached to writes, in order.
// An empty string records a create (no token).
func (f *FakeRepo) SHAsSeen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.shasSeen...)
}

// Commits returns how many commits the repo holds.
func (f *FakeRepo) Commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.history)
}

// LatestMessage returns the newest commit message.
func (f *FakeRepo) LatestMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.history) == 0 {
		return ""
	}
	return f.history[0].message
}

// CommitSHAAt returns the commit SHA at the given history position
// (0 = newest).
func (f *FakeRepo) CommitSHAAt(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[i].sha
}

// FailNextWrites makes PUT requests respond with the given status until
// reset with 0.
func (f *FakeRepo) FailNextWrites(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPUT = status
}

func (f *FakeRepo) commit(content []byte, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.content = append([]byte(nil), content...)
	f.history = append([]fakeCommit{{
		sha:     "commit-" + strconv.Itoa(f.seq),
		message: message,
		date:    time.Now().Add(-time.Duration(len(f.history)) * time.Hour),
		content: append([]byte(nil), content...),
	}}, f.history...)
}

func (f *FakeRepo) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.Contains(r.URL.Path, "/contents/") && r.Method == http.MethodGet:
		f.handleRead(w, r)
	case strings.Contains(r.URL.Path, "/contents/") && r.Method == http.MethodPut:
		f.handleWrite(w, r)
	case strings.Contains(r.URL.Path, "/commits"):
		f.handleHistory(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *FakeRepo) handleRead(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	content := f.content
	if ref := r.URL.Query().Get("ref"); ref != "" {
		content = nil
		for _, c := range f.history {
			if c.sha == ref {
				content = c.content
				break
			}
		}
	}
	if content == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"sha":      checksum.Sum(content),
		"content":  base64.StdEncoding.EncodeToString(content),
		"encoding": "base64",
	})
}

func (f *FakeRepo) handleWrite(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failPUT != 0 {
		w.WriteHeader(f.failPUT)
		return
	}

	var req struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.shasSeen = append(f.shasSeen, req.SHA)

	data, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Optimistic concurrency: token must match current state exactly.
	switch {
	case f.content == nil && req.SHA != "":
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	case f.content != nil && req.SHA != checksum.Sum(f.content):
		w.WriteHeader(http.StatusConflict)
		return
	}

	status := http.StatusOK
	if f.content == nil {
		status = http.StatusCreated
	}
	f.seq++
	commitSHA := "commit-" + strconv.Itoa(f.seq)
	f.content = data
	f.history = append([]fakeCommit{{
		sha:     commitSHA,
		message: req.Message,
		date:    time.Now(),
		content: append([]byte(nil), data...),
	}}, f.history...)

	writeJSON(w, status, map[string]any{
		"content": map[string]string{"sha": checksum.Sum(data)},
		"commit":  map[string]string{"sha": commitSHA, "message": req.Message},
	})
}

func (f *FakeRepo) handleHistory(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	limit := len(f.history)
	if n, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && n < limit {
		limit = n
	}
	entries := make([]map[string]any, 0, limit)
	for _, c := range f.history[:limit] {
		entries = append(entries, map[string]any{
			"sha": c.sha,
			"commit": map[string]any{
				"message": c.message,
				"author":  map[string]any{"date": c.date.Format(time.RFC3339)},
			},
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(fmt.Sprintf("testutil: encode response: %v", err))
	}
}
