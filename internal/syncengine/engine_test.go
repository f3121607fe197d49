package syncengine

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/joycelee/atelier/internal/apperr"
	"github.com/joycelee/atelier/internal/contentstore"
	"github.com/joycelee/atelier/internal/models"
	"github.com/joycelee/atelier/internal/testutil"
	"github.com/joycelee/atelier/internal/workspace"
)

func testEngine(t *testing.T) (*Engine, *workspace.Workspace, *testutil.FakeRepo) {
	t.Helper()
	repo := testutil.NewFakeRepo(t)
	store := contentstore.NewGitHub(repo.URL(), "data/projects.json", testutil.StaticCreds{Repo: "joyce/portfolio", Tok: "tok"})
	ws := workspace.New()
	_ = ws.Load(&models.Portfolio{
		Site:     models.Site{Title: "Joyce Lee"},
		Projects: []models.Project{{Slug: "house", Title: "House"}},
	})
	return New(store, ws, nil, nil, nil), ws, repo
}

func TestPublishCreatesWhenNoPriorFile(t *testing.T) {
	e, ws, repo := testEngine(t)
	ws.SetSite(models.Site{Title: "J. Lee"})

	if err := e.Publish(context.Background(), ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	// A 404 on read means create: no version token may be attached.
	shas := repo.SHAsSeen()
	if len(shas) != 1 || shas[0] != "" {
		t.Errorf("tokens sent = %v, want one empty token", shas)
	}
	if repo.LatestMessage() != DefaultCommitMessage {
		t.Errorf("message = %q", repo.LatestMessage())
	}
	if ws.IsDirty() {
		t.Error("publish must clear the dirty flag")
	}
}

func TestPublishWritesExactWorkingCopy(t *testing.T) {
	e, ws, repo := testEngine(t)
	ws.SetSite(models.Site{Title: "J. Lee"})

	want, _ := ws.Serialize()
	if err := e.Publish(context.Background(), "edit title"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !bytes.Equal(repo.Content(), want) {
		t.Errorf("stored content differs from working copy")
	}
	if !bytes.Equal(ws.Snapshot(), want) {
		t.Error("snapshot should be refreshed to the published bytes")
	}
}

func TestSecondPublishFetchesFreshToken(t *testing.T) {
	e, ws, repo := testEngine(t)

	ws.SetSite(models.Site{Title: "v1"})
	if err := e.Publish(context.Background(), "first"); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	firstBlob := repo.BlobSHA()

	ws.SetSite(models.Site{Title: "v2"})
	if err := e.Publish(context.Background(), "second"); err != nil {
		t.Fatalf("second publish: %v", err)
	}

	shas := repo.SHAsSeen()
	if len(shas) != 2 {
		t.Fatalf("writes = %d, want 2", len(shas))
	}
	if shas[1] != firstBlob {
		t.Errorf("second publish sent token %q, want the fresh token %q", shas[1], firstBlob)
	}
}

func TestPublishFailureLeavesStateUntouched(t *testing.T) {
	e, ws, repo := testEngine(t)
	repo.Seed([]byte(`{"site":{},"projects":[]}`), "init")
	repo.FailNextWrites(500)

	ws.SetSite(models.Site{Title: "J. Lee"})
	before, _ := ws.Serialize()

	err := e.Publish(context.Background(), "will fail")
	if err == nil {
		t.Fatal("expected publish failure")
	}
	if !ws.IsDirty() {
		t.Error("dirty flag must survive a failed publish")
	}
	after, _ := ws.Serialize()
	if !bytes.Equal(before, after) {
		t.Error("working copy must be untouched by a failed publish")
	}
	if got := e.Status(); got != StatusUnsaved {
		t.Errorf("status = %q, want %q after failure", got, StatusUnsaved)
	}
}

func TestHistoryExcludesCurrentVersion(t *testing.T) {
	e, _, repo := testEngine(t)
	repo.Seed([]byte("v1"), "first")
	repo.CommitExternal([]byte("v2"), "second")
	repo.CommitExternal([]byte("v3"), "third")

	versions, err := e.History(context.Background())
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("len = %d, want 2 (current excluded)", len(versions))
	}
	if versions[0].Message != "second" || versions[1].Message != "first" {
		t.Errorf("versions = %+v", versions)
	}
}

func TestRevertStagesWithoutWriting(t *testing.T) {
	e, ws, repo := testEngine(t)
	old := &models.Portfolio{Site: models.Site{Title: "Old Title"}, Projects: []models.Project{}}
	oldData, _ := old.Encode()
	repo.Seed(oldData, "old")
	repo.CommitExternal([]byte(`{"site":{"title":"Current"},"projects":[]}`), "current")
	writesBefore := repo.Commits()

	if err := e.RevertTo(context.Background(), repo.CommitSHAAt(1)); err != nil {
		t.Fatalf("RevertTo: %v", err)
	}
	if repo.Commits() != writesBefore {
		t.Error("revert must never write to the store")
	}
	if !ws.IsDirty() {
		t.Error("staged revert must mark the workspace dirty")
	}
	if got := ws.Document().Site.Title; got != "Old Title" {
		t.Errorf("staged title = %q", got)
	}
	if got := e.Status(); got != StatusReverted {
		t.Errorf("status = %q, want %q", got, StatusReverted)
	}
}

func TestRevertThenDiscardRestoresPreRevertCopy(t *testing.T) {
	e, ws, repo := testEngine(t)
	old := &models.Portfolio{Site: models.Site{Title: "Old"}, Projects: []models.Project{}}
	oldData, _ := old.Encode()
	repo.Seed(oldData, "old")
	repo.CommitExternal([]byte(`{"site":{"title":"x"},"projects":[]}`), "current")

	preRevert := ws.Snapshot()
	if err := e.RevertTo(context.Background(), repo.CommitSHAAt(1)); err != nil {
		t.Fatalf("RevertTo: %v", err)
	}
	if err := ws.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	e.ResetStatus()

	after, _ := ws.Serialize()
	if !bytes.Equal(preRevert, after) {
		t.Error("discard after revert must restore the pre-revert working copy")
	}
	if got := e.Status(); got != StatusEditMode {
		t.Errorf("status = %q, want %q", got, StatusEditMode)
	}
}

func TestPublishAfterRevertWritesStagedContent(t *testing.T) {
	e, ws, repo := testEngine(t)
	old := &models.Portfolio{Site: models.Site{Title: "Two Days Ago"}, Projects: []models.Project{}}
	oldData, _ := old.Encode()
	repo.Seed(oldData, "old")
	repo.CommitExternal([]byte(`{"site":{"title":"Current"},"projects":[]}`), "current")

	if err := e.RevertTo(context.Background(), repo.CommitSHAAt(1)); err != nil {
		t.Fatalf("RevertTo: %v", err)
	}
	staged, _ := ws.Serialize()
	if err := e.Publish(context.Background(), "restore older version"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !bytes.Equal(repo.Content(), staged) {
		t.Error("publish after revert must write exactly the staged content")
	}
}

func TestRevertFailureLeavesWorkingCopyIntact(t *testing.T) {
	e, ws, repo := testEngine(t)
	repo.Seed([]byte(`{"site":{},"projects":[]}`), "init")
	before, _ := ws.Serialize()

	err := e.RevertTo(context.Background(), "no-such-version")
	if err == nil {
		t.Fatal("expected revert failure for unknown version")
	}
	after, _ := ws.Serialize()
	if !bytes.Equal(before, after) {
		t.Error("failed revert must leave the prior working copy intact")
	}
	if got := e.Status(); got != StatusEditMode {
		t.Errorf("status = %q, want baseline after failure", got)
	}
}

func TestBusyGuardRejectsOverlap(t *testing.T) {
	e, _, _ := testEngine(t)
	if err := e.begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer e.end()

	if err := e.Publish(context.Background(), ""); !errors.Is(err, apperr.ErrBusy) {
		t.Errorf("publish err = %v, want ErrBusy", err)
	}
	if err := e.RevertTo(context.Background(), "sha"); !errors.Is(err, apperr.ErrBusy) {
		t.Errorf("revert err = %v, want ErrBusy", err)
	}
}

func TestLoadMissingFileYieldsEmptyPortfolio(t *testing.T) {
	e, _, _ := testEngine(t)
	doc, err := e.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Projects) != 0 {
		t.Errorf("projects = %v, want empty", doc.Projects)
	}
}

func TestPublishMissingCredential(t *testing.T) {
	repo := testutil.NewFakeRepo(t)
	store := contentstore.NewGitHub(repo.URL(), "data/projects.json", testutil.StaticCreds{})
	ws := workspace.New()
	e := New(store, ws, nil, nil, nil)

	err := e.Publish(context.Background(), "")
	if !errors.Is(err, apperr.ErrNoCredential) {
		t.Errorf("err = %v, want ErrNoCredential", err)
	}
}
