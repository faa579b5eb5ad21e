package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
	"github.com/codebuildervaibhav/news-shorts/internal/types"
)

func openTestDB(t *testing.T) *VideoDB {
	t.Helper()
	db, err := NewVideoDB(filepath.Join(t.TempDir(), "system.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndGetVideo(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec := &types.VideoRecord{
		GlobalID:    "a1",
		FilePath:    "public/cache/final.mp4",
		Title:       "Chuva em SP",
		Description: "Temporal atinge a capital",
		SourceURL:   "https://example.com/chuva",
		SourceName:  "Example",
		PublishedAt: "2025-01-23T10:00:00Z",
		CreatedAt:   time.Date(2025, 1, 23, 12, 0, 0, 0, time.UTC),
	}
	if err := db.SaveVideo(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.GetVideo(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != rec.Title || got.FilePath != rec.FilePath || !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("got %+v", got)
	}
}

func TestSaveVideoDuplicateID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec := &types.VideoRecord{GlobalID: "dup", FilePath: "a.mp4"}
	if err := db.SaveVideo(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveVideo(ctx, rec); err == nil {
		t.Fatalf("expected duplicate id to fail")
	}
}

func TestSaveVideoRequiresFields(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveVideo(context.Background(), &types.VideoRecord{GlobalID: "x"}); !apperrors.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetVideoNotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetVideo(context.Background(), "missing"); !apperrors.IsNotFoundError(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFindVideoByPath(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.FindVideoByPath(ctx, "run/final.mp4"); !apperrors.IsNotFoundError(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	base := time.Date(2025, 1, 23, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new"} {
		rec := &types.VideoRecord{GlobalID: id, FilePath: "run/final.mp4", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := db.SaveVideo(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	db.SaveVideo(ctx, &types.VideoRecord{GlobalID: "other", FilePath: "other/final.mp4", CreatedAt: base.Add(2 * time.Hour)})

	got, err := db.FindVideoByPath(ctx, "run/final.mp4")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.GlobalID != "new" {
		t.Fatalf("got %s, want newest record for the path", got.GlobalID)
	}
}

func TestListVideosNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		rec := &types.VideoRecord{GlobalID: id, FilePath: id + ".mp4", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := db.SaveVideo(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	videos, err := db.ListVideos(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(videos) != 2 || videos[0].GlobalID != "new" || videos[1].GlobalID != "mid" {
		t.Fatalf("got %v", videos)
	}
}

func TestRunDirIsDated(t *testing.T) {
	root := t.TempDir()
	ls := NewLocalStorage(root)
	ls.now = func() time.Time { return time.Date(2025, 1, 23, 14, 30, 0, 0, time.UTC) }

	dir, err := ls.RunDir("run-42")
	if err != nil {
		t.Fatalf("run dir: %v", err)
	}
	want := filepath.Join(root, "2025", "01", "23", "run-42")
	if dir != want {
		t.Fatalf("dir = %s, want %s", dir, want)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("run dir not created: %v", err)
	}

	if _, err := ls.RunDir("  "); !apperrors.IsValidationError(err) {
		t.Fatalf("expected validation error for blank id, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"../etc/passwd":       "_etc_passwd",
		`Chuva: "SP" <hoje>?`: "Chuva_ _SP_ _hoje__",
		"plain name":          "plain name",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
