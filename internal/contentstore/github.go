package contentstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joycelee/atelier/internal/apperr"
)

// DefaultBaseURL is the public GitHub REST API endpoint.
const DefaultBaseURL = "https://api.github.com"

// GitHub implements Store on top of the GitHub Contents API.
type GitHub struct {
	baseURL  string
	filePath string
	creds    CredentialSource
	hc       *http.Client
}

// NewGitHub creates a client for one file path within the repository the
// credential source names. baseURL is overridable for tests.
func NewGitHub(baseURL, filePath string, creds CredentialSource) *GitHub {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GitHub{
		baseURL:  strings.TrimRight(baseURL, "/"),
		filePath: filePath,
		creds:    creds,
		hc:       &http.Client{Timeout: 30 * time.Second},
	}
}

type contentResponse struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type writeResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA     string `json:"sha"`
		Message string `json:"message"`
	} `json:"commit"`
}

type commitEntry struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// Read returns the current file, or apperr.ErrNotFound on 404.
func (g *GitHub) Read(ctx context.Context) (*File, error) {
	return g.read(ctx, "")
}

// ReadAt returns the file at a specific version identifier.
func (g *GitHub) ReadAt(ctx context.Context, ref string) (*File, error) {
	if ref == "" {
		return nil, fmt.Errorf("contentstore: ref is required")
	}
	return g.read(ctx, ref)
}

func (g *GitHub) read(ctx context.Context, ref string) (*File, error) {
	u, err := g.contentsURL()
	if err != nil {
		return nil, err
	}
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}

	resp, err := g.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperr.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("contentstore: read %s: %s", g.filePath, resp.Status)
	}

	var body contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("contentstore: decode read response: %w", err)
	}
	content, err := decodeContent(body.Content)
	if err != nil {
		return nil, err
	}
	return &File{SHA: body.SHA, Content: content}, nil
}

// Write commits content via PUT. An empty sha creates the file; otherwise the
// store checks the token and rejects stale writes.
func (g *GitHub) Write(ctx context.Context, message string, content []byte, sha string) (*Commit, error) {
	u, err := g.contentsURL()
	if err != nil {
		return nil, err
	}

	payload := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
	}
	if sha != "" {
		payload["sha"] = sha
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("contentstore: encode write request: %w", err)
	}

	resp, err := g.do(ctx, http.MethodPut, u, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict, resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("contentstore: write %s (%s): %w", g.filePath, resp.Status, apperr.ErrConflict)
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		return nil, fmt.Errorf("contentstore: write %s: %s", g.filePath, resp.Status)
	}

	var body writeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("contentstore: decode write response: %w", err)
	}
	return &Commit{SHA: body.Commit.SHA, Message: body.Commit.Message}, nil
}

// History lists commits touching the file, newest first.
func (g *GitHub) History(ctx context.Context, limit int) ([]Version, error) {
	repo, err := g.repo()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	u := fmt.Sprintf("%s/repos/%s/commits?path=%s&per_page=%s",
		g.baseURL, repo, url.QueryEscape(g.filePath), strconv.Itoa(limit))

	resp, err := g.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("contentstore: history %s: %s", g.filePath, resp.Status)
	}

	var entries []commitEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("contentstore: decode history: %w", err)
	}
	out := make([]Version, len(entries))
	for i, e := range entries {
		out[i] = Version{SHA: e.SHA, Message: e.Commit.Message, Date: e.Commit.Author.Date}
	}
	return out, nil
}

func (g *GitHub) do(ctx context.Context, method, u string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("contentstore: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if token := g.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := g.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contentstore: %s %s: %w", method, g.filePath, err)
	}
	return resp, nil
}

func (g *GitHub) contentsURL() (string, error) {
	repo, err := g.repo()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/repos/%s/contents/%s", g.baseURL, repo, g.filePath), nil
}

func (g *GitHub) repo() (string, error) {
	repo := g.creds.Repository()
	if repo == "" || g.creds.Token() == "" {
		return "", apperr.ErrNoCredential
	}
	return repo, nil
}

// decodeContent handles the store's base64 transport, which wraps lines with
// newlines.
func decodeContent(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("contentstore: decode content: %w", err)
	}
	return data, nil
}
