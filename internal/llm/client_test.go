package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("sk-test", srv.URL+"/")
}

func TestCompleteSendsBothMessages(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  roteiro pronto \n"}}]}`)
	})

	out, err := c.Complete(context.Background(), "gpt-4o-mini", "sys", "prompt")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "roteiro pronto" {
		t.Fatalf("out = %q", out)
	}
	if got.Model != "gpt-4o-mini" || len(got.Messages) != 2 {
		t.Fatalf("request = %+v", got)
	}
	if got.Messages[0].Role != "system" || got.Messages[1].Content != "prompt" {
		t.Fatalf("messages = %+v", got.Messages)
	}
}

func TestCompleteUnauthorizedIsPermanent(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})

	_, err := c.Complete(context.Background(), "m", "s", "u")
	if err == nil || !apperrors.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestCompleteServerErrorIsTransient(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Complete(context.Background(), "m", "s", "u")
	if err == nil || apperrors.IsPermanent(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if apperrors.TypeOf(err) != apperrors.ErrorTypeExternal {
		t.Fatalf("type = %s", apperrors.TypeOf(err))
	}
}

func TestSpeechReturnsBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["voice"] != "alloy" || req["input"] != "ola" {
			t.Errorf("request = %v", req)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3fake"))
	})

	data, err := c.Speech(context.Background(), "gpt-4o-mini-tts", "alloy", "ola")
	if err != nil {
		t.Fatalf("speech: %v", err)
	}
	if string(data) != "ID3fake" {
		t.Fatalf("data = %q", data)
	}
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"```json\n[{\"a\":1}]\n```": `[{"a":1}]`,
		"```\n[1]\n```":             "[1]",
		"```[1]```":                 "[1]",
		"  plain text  ":            "plain text",
	}
	for in, want := range cases {
		if got := StripFences(in); got != want {
			t.Fatalf("StripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
