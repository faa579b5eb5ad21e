package media

import (
	"context"
	"testing"
)

type stubRunner struct {
	out  string
	name string
	args []string
}

func (s *stubRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	s.name = name
	s.args = args
	return []byte(s.out), nil
}

func TestParseDurationMs(t *testing.T) {
	cases := map[string]int64{
		"30.000000\n": 30000,
		"12.3456":     12346,
		"0":           0,
		"7.5\nextra":  7500,
	}
	for in, want := range cases {
		got, err := ParseDurationMs(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: got %d, want %d", in, got, want)
		}
	}
}

func TestParseDurationMsRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "N/A", "-3"} {
		if _, err := ParseDurationMs(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}

func TestProberInvokesFFprobe(t *testing.T) {
	r := &stubRunner{out: "4.2\n"}
	ms, err := NewProber(r).DurationMs(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if ms != 4200 {
		t.Fatalf("got %d", ms)
	}
	if r.name != "ffprobe" || r.args[len(r.args)-1] != "clip.mp4" {
		t.Fatalf("unexpected invocation %s %v", r.name, r.args)
	}
}
