package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
	"github.com/codebuildervaibhav/news-shorts/internal/media"
	"github.com/codebuildervaibhav/news-shorts/internal/transcription"
	"github.com/codebuildervaibhav/news-shorts/internal/types"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls  []call
	failAt int
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	out := args[len(args)-1]
	if f.failAt > 0 && len(f.calls) == f.failAt {
		// ffmpeg killed halfway leaves a truncated file behind
		os.WriteFile(out, []byte("trunc"), 0644)
		return []byte("boom"), apperrors.NewSubprocessError("ffmpeg failed: boom", nil)
	}
	return nil, os.WriteFile(out, []byte("encoded"), 0644)
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestComposeCropsInOrderThenConcats(t *testing.T) {
	work := t.TempDir()
	allocs := []types.SceneAllocation{
		{Path: "a.mp4", StartMs: 0, EndMs: 12000},
		{Path: "b.mp4", StartMs: 12000, EndMs: 16500},
		{Path: "c.mp4", StartMs: 16500, EndMs: 28000},
	}

	r := &fakeRunner{}
	out := filepath.Join(work, "video", "final.mp4")
	if err := NewComposer(r, 720, 1280, 30).Compose(context.Background(), allocs, work, out); err != nil {
		t.Fatalf("compose: %v", err)
	}

	if len(r.calls) != 4 {
		t.Fatalf("got %d ffmpeg calls", len(r.calls))
	}
	wantDur := []string{"12.000", "4.500", "11.500"}
	for i, c := range r.calls[:3] {
		if argAfter(c.args, "-i") != allocs[i].Path {
			t.Fatalf("crop %d input = %s", i, argAfter(c.args, "-i"))
		}
		if argAfter(c.args, "-t") != wantDur[i] {
			t.Fatalf("crop %d duration = %s", i, argAfter(c.args, "-t"))
		}
		if argAfter(c.args, "-r") != "30" || !strings.Contains(argAfter(c.args, "-vf"), "crop=720:1280") {
			t.Fatalf("crop %d args = %v", i, c.args)
		}
		if c.args[len(c.args)-1] != media.PartPath(CropPath(work, i)) {
			t.Fatalf("crop %d output = %s", i, c.args[len(c.args)-1])
		}
	}

	concat := r.calls[3]
	if argAfter(concat.args, "-f") != "concat" || concat.args[len(concat.args)-1] != media.PartPath(out) {
		t.Fatalf("concat args = %v", concat.args)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("composed video not committed: %v", err)
	}
	list, err := os.ReadFile(argAfter(concat.args, "-i"))
	if err != nil {
		t.Fatalf("read concat list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(list)), "\n")
	for i, line := range lines {
		if !strings.HasSuffix(line, fmt.Sprintf("crop/video_%d.mp4'", i+1)) {
			t.Fatalf("line %d = %s", i, line)
		}
	}
}

func TestComposeStopsOnCropFailure(t *testing.T) {
	r := &fakeRunner{failAt: 2}
	allocs := []types.SceneAllocation{{Path: "a.mp4", EndMs: 1000}, {Path: "b.mp4", StartMs: 1000, EndMs: 2000}, {Path: "c.mp4", StartMs: 2000, EndMs: 3000}}

	work := t.TempDir()
	err := NewComposer(r, 720, 1280, 30).Compose(context.Background(), allocs, work, filepath.Join(work, "out.mp4"))
	if !apperrors.IsSubprocessError(err) {
		t.Fatalf("expected subprocess error, got %v", err)
	}
	if len(r.calls) != 2 {
		t.Fatalf("kept going after failure: %d calls", len(r.calls))
	}
	for _, p := range []string{CropPath(work, 1), media.PartPath(CropPath(work, 1))} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("partial crop %s left behind", p)
		}
	}
}

func TestComposeRejectsEmpty(t *testing.T) {
	if err := NewComposer(&fakeRunner{}, 720, 1280, 30).Compose(context.Background(), nil, t.TempDir(), "out.mp4"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRenderWritesSRTAndMuxes(t *testing.T) {
	dir := t.TempDir()
	captions := filepath.Join(dir, "audio.json")
	tokens := []types.CaptionToken{
		{Text: "Hoje", FromMs: 0, ToMs: 400},
		{Text: "choveu", FromMs: 400, ToMs: 900},
	}
	if err := transcription.WriteCaptions(captions, tokens); err != nil {
		t.Fatal(err)
	}

	r := &fakeRunner{}
	style := CaptionStyle{Font: "Barlow Condensed", FontSize: 18, MarginBottom: 70, MaxChars: 24}
	in := RenderInput{VideoPath: "bg.mp4", AudioPath: "audio.mp3", CaptionsPath: captions, OutPath: filepath.Join(dir, "out", "final.mp4")}
	if err := NewRenderer(r, style).Render(context.Background(), in); err != nil {
		t.Fatalf("render: %v", err)
	}

	srt, err := os.ReadFile(filepath.Join(dir, "captions.srt"))
	if err != nil {
		t.Fatalf("srt missing: %v", err)
	}
	if !strings.Contains(string(srt), "Hoje choveu") {
		t.Fatalf("srt = %s", srt)
	}

	args := strings.Join(r.calls[0].args, " ")
	for _, want := range []string{"-i bg.mp4", "-i audio.mp3", "-map 0:v:0", "-map 1:a:0", "-c:a aac", "+faststart", "FontName=Barlow Condensed", "MarginV=70"} {
		if !strings.Contains(args, want) {
			t.Fatalf("args %q missing %q", args, want)
		}
	}
	if strings.Contains(args, "-shortest") {
		t.Fatalf("narration must not be cut")
	}
	if data, err := os.ReadFile(in.OutPath); err != nil || string(data) != "encoded" {
		t.Fatalf("final video = %q, %v", data, err)
	}
}

func TestRenderFailureLeavesNoFinalVideo(t *testing.T) {
	dir := t.TempDir()
	captions := filepath.Join(dir, "audio.json")
	if err := transcription.WriteCaptions(captions, []types.CaptionToken{{Text: "Hoje", ToMs: 400}}); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "final.mp4")
	in := RenderInput{VideoPath: "bg.mp4", AudioPath: "audio.mp3", CaptionsPath: captions, OutPath: out}
	err := NewRenderer(&fakeRunner{failAt: 1}, CaptionStyle{}).Render(context.Background(), in)
	if !apperrors.IsSubprocessError(err) {
		t.Fatalf("expected subprocess error, got %v", err)
	}
	for _, p := range []string{out, media.PartPath(out)} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("%s exists after failed render", p)
		}
	}
}

func TestRenderMissingCaptions(t *testing.T) {
	err := NewRenderer(&fakeRunner{}, CaptionStyle{}).Render(context.Background(), RenderInput{CaptionsPath: filepath.Join(t.TempDir(), "none.json")})
	if !apperrors.IsIOError(err) {
		t.Fatalf("expected io error, got %v", err)
	}
}

func TestEscapeSubtitlePath(t *testing.T) {
	if got := escapeSubtitlePath(`C:\tmp\captions.srt`); got != `C\:/tmp/captions.srt` {
		t.Fatalf("got %s", got)
	}
}
