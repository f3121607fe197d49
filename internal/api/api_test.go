package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/joycelee/atelier/internal/api"
	"github.com/joycelee/atelier/internal/contentstore"
	"github.com/joycelee/atelier/internal/credentials"
	"github.com/joycelee/atelier/internal/models"
	"github.com/joycelee/atelier/internal/renderer"
	"github.com/joycelee/atelier/internal/session"
	"github.com/joycelee/atelier/internal/syncengine"
	"github.com/joycelee/atelier/internal/testutil"
	"github.com/joycelee/atelier/internal/workspace"
)

const testSecret = "test"

type env struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client

	repo  *testutil.FakeRepo
	ws    *workspace.Workspace
	creds *credentials.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()

	dir := t.TempDir()
	writeTemplates(t, dir)

	repo := testutil.NewFakeRepo(t)
	creds, err := credentials.Open(filepath.Join(dir, "credentials.json"))
	if err != nil {
		t.Fatalf("open credentials: %v", err)
	}
	if err := creds.Set("joycelee/site", "tok"); err != nil {
		t.Fatalf("set credentials: %v", err)
	}

	store := contentstore.NewGitHub(repo.URL(), "data/projects.json", creds)
	ws := workspace.New()
	engine := syncengine.New(store, ws, nil, nil, nil)

	rend, err := renderer.New(dir)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	router := api.NewRouter(api.Deps{
		Workspace:   ws,
		Engine:      engine,
		Sessions:    session.NewManager(session.Fold(testSecret)),
		Credentials: creds,
		Renderer:    rend,
		Draft:       workspace.NewDraftFile(filepath.Join(dir, "draft.json")),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}

	return &env{
		t:      t,
		server: server,
		client: &http.Client{Jar: jar},
		repo:   repo,
		ws:     ws,
		creds:  creds,
	}
}

func writeTemplates(t *testing.T, dir string) {
	t.Helper()
	index := `<h1>{{.Site.Title}}</h1>{{range .Projects}}<div class="project-card">{{.Title}}</div>{{end}}`
	project := `<h1 class="project-page__title">{{.Project.Title}}</h1>`
	for name, body := range map[string]string{"index.html.tmpl": index, "project.html.tmpl": project} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write template %s: %v", name, err)
		}
	}
}

func (e *env) do(method, path string, body any) *http.Response {
	e.t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, buf)
	if err != nil {
		e.t.Fatalf("new request: %v", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	e.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *env) decode(resp *http.Response, v any) {
	e.t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		e.t.Fatalf("decode response: %v", err)
	}
}

func (e *env) enterEditMode() {
	e.t.Helper()
	if resp := e.do(http.MethodPost, "/api/session/unlock", map[string]string{"secret": testSecret}); resp.StatusCode != http.StatusNoContent {
		e.t.Fatalf("unlock: status %d", resp.StatusCode)
	}
	if resp := e.do(http.MethodPost, "/api/session/enter", map[string]string{}); resp.StatusCode != http.StatusNoContent {
		e.t.Fatalf("enter: status %d", resp.StatusCode)
	}
}

func (e *env) status() api.StatusResponse {
	e.t.Helper()
	resp := e.do(http.MethodGet, "/api/status", nil)
	if resp.StatusCode != http.StatusOK {
		e.t.Fatalf("status: status %d", resp.StatusCode)
	}
	var s api.StatusResponse
	e.decode(resp, &s)
	return s
}

func TestUnlockWrongSecret(t *testing.T) {
	e := newEnv(t)
	resp := e.do(http.MethodPost, "/api/session/unlock", map[string]string{"secret": "nope"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestMutationsGatedBySession(t *testing.T) {
	e := newEnv(t)
	site := models.Site{Title: "New Title"}

	if resp := e.do(http.MethodPut, "/api/site", site); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("locked: status = %d, want 401", resp.StatusCode)
	}

	if resp := e.do(http.MethodPost, "/api/session/unlock", map[string]string{"secret": testSecret}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unlock: status %d", resp.StatusCode)
	}
	if resp := e.do(http.MethodPut, "/api/site", site); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unlocked but inactive: status = %d, want 403", resp.StatusCode)
	}

	if resp := e.do(http.MethodPost, "/api/session/enter", map[string]string{}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("enter: status %d", resp.StatusCode)
	}
	if resp := e.do(http.MethodPut, "/api/site", site); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("active: status = %d, want 204", resp.StatusCode)
	}
}

func TestEditThenExitInterception(t *testing.T) {
	e := newEnv(t)
	if err := e.ws.Load(&models.Portfolio{Site: models.Site{Title: "Old Title"}, Projects: []models.Project{}}); err != nil {
		t.Fatalf("load: %v", err)
	}
	e.enterEditMode()

	if resp := e.do(http.MethodPut, "/api/site", models.Site{Title: "New Title"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("update site: status %d", resp.StatusCode)
	}
	if s := e.status(); !s.Dirty || s.Status != syncengine.StatusUnsaved {
		t.Fatalf("after edit: dirty=%v status=%q", s.Dirty, s.Status)
	}

	// A plain exit with unsaved changes is intercepted.
	resp := e.do(http.MethodPost, "/api/session/exit", map[string]string{})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("plain exit: status = %d, want 409", resp.StatusCode)
	}
	var intercept struct {
		Choices []string `json:"choices"`
	}
	e.decode(resp, &intercept)
	if len(intercept.Choices) != 3 {
		t.Fatalf("choices = %v", intercept.Choices)
	}

	// Cancel stays in edit mode with edits intact.
	if resp := e.do(http.MethodPost, "/api/session/exit", map[string]string{"action": "cancel"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("cancel: status %d", resp.StatusCode)
	}
	if got := e.ws.Document().Site.Title; got != "New Title" {
		t.Fatalf("after cancel title = %q", got)
	}

	// Discard restores the snapshot and exits.
	if resp := e.do(http.MethodPost, "/api/session/exit", map[string]string{"action": "discard"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("discard: status %d", resp.StatusCode)
	}
	if got := e.ws.Document().Site.Title; got != "Old Title" {
		t.Fatalf("after discard title = %q", got)
	}
	if resp := e.do(http.MethodPut, "/api/site", models.Site{Title: "X"}); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("after exit mutation: status = %d, want 403", resp.StatusCode)
	}
}

func TestProjectLifecycle(t *testing.T) {
	e := newEnv(t)
	e.enterEditMode()

	resp := e.do(http.MethodPost, "/api/projects", map[string]string{"title": "Sound Garden"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add project: status = %d, want 201", resp.StatusCode)
	}
	var p models.Project
	e.decode(resp, &p)
	if p.Slug != "sound-garden" {
		t.Fatalf("slug = %q", p.Slug)
	}

	if resp := e.do(http.MethodPost, "/api/projects/sound-garden/descriptions", map[string]string{"text": "An installation."}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("add description: status %d", resp.StatusCode)
	}
	if resp := e.do(http.MethodPut, "/api/projects/sound-garden/descriptions/0", map[string]string{"text": "A sound installation."}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("set description: status %d", resp.StatusCode)
	}
	if resp := e.do(http.MethodPost, "/api/projects/sound-garden/meta", models.MetaEntry{Label: "Year", Value: "2025"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("add meta: status %d", resp.StatusCode)
	}

	doc := e.ws.Document()
	proj := doc.ProjectBySlug("sound-garden")
	if proj == nil {
		t.Fatal("project missing from document")
	}
	if len(proj.Descriptions) != 1 || proj.Descriptions[0] != "A sound installation." {
		t.Fatalf("descriptions = %v", proj.Descriptions)
	}
	if len(proj.Meta) != 1 || proj.Meta[0].Label != "Year" {
		t.Fatalf("meta = %v", proj.Meta)
	}

	if resp := e.do(http.MethodDelete, "/api/projects/sound-garden/", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete project: status %d", resp.StatusCode)
	}
	if e.ws.Document().ProjectBySlug("sound-garden") != nil {
		t.Fatal("project still present after delete")
	}

	if resp := e.do(http.MethodDelete, "/api/projects/sound-garden/", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete missing: status = %d, want 404", resp.StatusCode)
	}
}

func TestPublishAndHistoryAndRevert(t *testing.T) {
	e := newEnv(t)
	e.enterEditMode()

	// First publish creates the file.
	if resp := e.do(http.MethodPut, "/api/site", models.Site{Title: "v1"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("edit: status %d", resp.StatusCode)
	}
	resp := e.do(http.MethodPost, "/api/publish", map[string]string{"message": "first"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish: status = %d", resp.StatusCode)
	}
	var s api.StatusResponse
	e.decode(resp, &s)
	if s.Dirty {
		t.Fatal("dirty after publish")
	}
	if e.repo.LatestMessage() != "first" {
		t.Fatalf("latest message = %q", e.repo.LatestMessage())
	}

	// Second publish.
	if resp := e.do(http.MethodPut, "/api/site", models.Site{Title: "v2"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("edit: status %d", resp.StatusCode)
	}
	if resp := e.do(http.MethodPost, "/api/publish", map[string]string{"message": "second"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("publish: status %d", resp.StatusCode)
	}

	// History excludes the current version.
	resp = e.do(http.MethodGet, "/api/history", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: status %d", resp.StatusCode)
	}
	var hist api.HistoryResponse
	e.decode(resp, &hist)
	if len(hist.Versions) != 1 || hist.Versions[0].Message != "first" {
		t.Fatalf("versions = %+v", hist.Versions)
	}

	// Revert stages the old version locally without writing upstream.
	commits := e.repo.Commits()
	resp = e.do(http.MethodPost, "/api/revert", map[string]string{"sha": hist.Versions[0].SHA})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("revert: status %d", resp.StatusCode)
	}
	e.decode(resp, &s)
	if !s.Dirty || s.Status != syncengine.StatusReverted {
		t.Fatalf("after revert: dirty=%v status=%q", s.Dirty, s.Status)
	}
	if e.repo.Commits() != commits {
		t.Fatal("revert wrote to the store")
	}
	if got := e.ws.Document().Site.Title; got != "v1" {
		t.Fatalf("staged title = %q", got)
	}
}

func TestRevertRequiresSHA(t *testing.T) {
	e := newEnv(t)
	e.enterEditMode()
	resp := e.do(http.MethodPost, "/api/revert", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestExitWithPublish(t *testing.T) {
	e := newEnv(t)
	e.enterEditMode()

	if resp := e.do(http.MethodPut, "/api/site", models.Site{Title: "shipped"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("edit: status %d", resp.StatusCode)
	}
	if resp := e.do(http.MethodPost, "/api/session/exit", map[string]string{"action": "publish"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("exit publish: status %d", resp.StatusCode)
	}
	if e.repo.Commits() != 1 {
		t.Fatalf("commits = %d, want 1", e.repo.Commits())
	}
	if e.repo.LatestMessage() != syncengine.DefaultCommitMessage {
		t.Fatalf("message = %q", e.repo.LatestMessage())
	}
	if resp := e.do(http.MethodPut, "/api/site", models.Site{Title: "X"}); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("after exit: status = %d, want 403", resp.StatusCode)
	}
}

func TestSettingsUpdate(t *testing.T) {
	e := newEnv(t)
	e.enterEditMode()

	if resp := e.do(http.MethodPut, "/api/settings", map[string]string{}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty settings: status = %d, want 400", resp.StatusCode)
	}
	if resp := e.do(http.MethodPut, "/api/settings", map[string]string{"repository": "joycelee/other"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("settings: status %d", resp.StatusCode)
	}
	if e.creds.Repository() != "joycelee/other" {
		t.Fatalf("repository = %q", e.creds.Repository())
	}
	if e.creds.Token() != "tok" {
		t.Fatalf("token = %q, want unchanged", e.creds.Token())
	}
}

func TestSetupQueryScrubbed(t *testing.T) {
	e := newEnv(t)
	e.client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp := e.do(http.MethodGet, "/?setup=fresh-token&admin", nil)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if loc == "" || bytes.Contains([]byte(loc), []byte("setup")) {
		t.Fatalf("location = %q, setup must be scrubbed", loc)
	}
	if e.creds.Token() != "fresh-token" {
		t.Fatalf("token = %q", e.creds.Token())
	}
}

func TestProjectPageNotFound(t *testing.T) {
	e := newEnv(t)
	resp := e.do(http.MethodGet, "/project?slug=missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDraftSaveAndClear(t *testing.T) {
	e := newEnv(t)
	e.enterEditMode()

	if resp := e.do(http.MethodPut, "/api/site", models.Site{Title: "draft"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("edit: status %d", resp.StatusCode)
	}
	if resp := e.do(http.MethodPost, "/api/draft", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("save draft: status %d", resp.StatusCode)
	}
	if resp := e.do(http.MethodDelete, "/api/draft", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear draft: status %d", resp.StatusCode)
	}
}
