package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
	"github.com/codebuildervaibhav/news-shorts/internal/pipeline"
	"github.com/codebuildervaibhav/news-shorts/internal/queue"
	"github.com/codebuildervaibhav/news-shorts/internal/types"
)

type fakeRunner struct {
	prompts chan string
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.prompts <- req.Prompt
	if req.Prompt == "fail" {
		return nil, apperrors.NewMalformedModelOutputError("got 2 scenes, want 6-10", nil)
	}
	return &pipeline.Result{Paths: pipeline.PathsFor(req.WorkDir), Record: &types.VideoRecord{GlobalID: "v1"}}, nil
}

type tempDirs struct{ root string }

func (d tempDirs) RunDir(id string) (string, error) { return filepath.Join(d.root, id), nil }

type fakeVideos map[string]*types.VideoRecord

func (f fakeVideos) GetVideo(ctx context.Context, id string) (*types.VideoRecord, error) {
	if rec, ok := f[id]; ok {
		return rec, nil
	}
	return nil, apperrors.NewNotFoundError("video "+id+" not found", nil)
}

func (f fakeVideos) ListVideos(ctx context.Context, limit int) ([]*types.VideoRecord, error) {
	out := []*types.VideoRecord{}
	for _, rec := range f {
		out = append(out, rec)
	}
	return out, nil
}

func newTestApp(t *testing.T, videos fakeVideos) (*fiber.App, *fakeRunner) {
	t.Helper()
	runner := &fakeRunner{prompts: make(chan string, 10)}
	pool := queue.NewWorkerPool(1, runner, tempDirs{root: t.TempDir()})
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)

	app := fiber.New()
	vh := NewVideoHandler(pool, videos)
	app.Post("/videos", vh.Create)
	app.Get("/videos", vh.List)
	app.Get("/videos/:id", vh.Get)
	app.Get("/status/:id", NewStatusHandler(pool).Handle)
	return app, runner
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string, out any) int {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
	}
	return resp.StatusCode
}

func pollStatus(t *testing.T, app *fiber.App, id string) queue.JobStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var s queue.JobStatus
		if code := doJSON(t, app, http.MethodGet, "/status/"+id, "", &s); code != http.StatusOK {
			t.Fatalf("status code %d", code)
		}
		if s.Done() {
			return s
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never finished", id)
	return queue.JobStatus{}
}

func TestCreateVideoUsesDescriptionAsPrompt(t *testing.T) {
	app, runner := newTestApp(t, fakeVideos{})

	var created map[string]string
	code := doJSON(t, app, http.MethodPost, "/videos", `{"article":{"title":"Chuva","description":"Temporal em SP"}}`, &created)
	if code != http.StatusAccepted || created["job_id"] == "" {
		t.Fatalf("code %d body %v", code, created)
	}

	s := pollStatus(t, app, created["job_id"])
	if s.Status != types.StatusCompleted || s.VideoID != "v1" {
		t.Fatalf("status = %+v", s)
	}
	// the worker receives the empty prompt and the orchestrator falls back to the description
	if p := <-runner.prompts; p != "" {
		t.Fatalf("prompt = %q", p)
	}
}

func TestCreateVideoFailureSurfacesInStatus(t *testing.T) {
	app, _ := newTestApp(t, fakeVideos{})

	var created map[string]string
	doJSON(t, app, http.MethodPost, "/videos", `{"prompt":"fail"}`, &created)

	s := pollStatus(t, app, created["job_id"])
	if s.Status != types.StatusFailed || s.ErrorType != "malformed_model_output" {
		t.Fatalf("status = %+v", s)
	}
}

func TestCreateVideoValidation(t *testing.T) {
	app, _ := newTestApp(t, fakeVideos{})

	var body map[string]string
	if code := doJSON(t, app, http.MethodPost, "/videos", `{"prompt":"  "}`, &body); code != http.StatusBadRequest {
		t.Fatalf("code = %d", code)
	}
	if body["code"] != "ERR_NO_PROMPT" {
		t.Fatalf("body = %v", body)
	}
	if code := doJSON(t, app, http.MethodPost, "/videos", `{not json`, nil); code != http.StatusBadRequest {
		t.Fatalf("code = %d", code)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	app, _ := newTestApp(t, fakeVideos{})
	if code := doJSON(t, app, http.MethodGet, "/status/missing", "", nil); code != http.StatusNotFound {
		t.Fatalf("code = %d", code)
	}
}

func TestGetAndListVideos(t *testing.T) {
	videos := fakeVideos{"abc": {GlobalID: "abc", Title: "Chuva", FilePath: "final.mp4"}}
	app, _ := newTestApp(t, videos)

	var rec types.VideoRecord
	if code := doJSON(t, app, http.MethodGet, "/videos/abc", "", &rec); code != http.StatusOK || rec.Title != "Chuva" {
		t.Fatalf("code %d rec %+v", code, rec)
	}

	var body map[string]string
	if code := doJSON(t, app, http.MethodGet, "/videos/zzz", "", &body); code != http.StatusNotFound || body["code"] != "ERR_NOT_FOUND" {
		t.Fatalf("code %d body %v", code, body)
	}

	var list []types.VideoRecord
	if code := doJSON(t, app, http.MethodGet, "/videos?limit=10", "", &list); code != http.StatusOK || len(list) != 1 {
		t.Fatalf("code %d list %+v", code, list)
	}
	if code := doJSON(t, app, http.MethodGet, "/videos?limit=0", "", nil); code != http.StatusBadRequest {
		t.Fatalf("code = %d", code)
	}
}

func TestAppErrorStatus(t *testing.T) {
	app := fiber.New()
	errs := map[string]error{
		"busy": pipeline.ErrWorkDirBusy,
		"dup":  apperrors.NewConflictError("job dup already exists", nil),
		"full": apperrors.NewUnavailableError("job queue is full", nil),
		"bad":  apperrors.NewValidationError("prompt is required", nil),
		"raw":  io.ErrUnexpectedEOF,
	}
	app.Get("/err/:kind", func(c *fiber.Ctx) error {
		return appErrorJSON(c, errs[c.Params("kind")])
	})

	cases := []struct {
		kind   string
		status int
		code   string
	}{
		{"busy", http.StatusConflict, "ERR_CONFLICT"},
		{"dup", http.StatusConflict, "ERR_CONFLICT"},
		{"full", http.StatusServiceUnavailable, "ERR_UNAVAILABLE"},
		{"bad", http.StatusBadRequest, "ERR_VALIDATION_ERROR"},
		{"raw", http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		var body map[string]string
		if code := doJSON(t, app, http.MethodGet, "/err/"+tc.kind, "", &body); code != tc.status || body["code"] != tc.code {
			t.Fatalf("%s: code %d body %v", tc.kind, code, body)
		}
	}
}
