package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
)

// Completer answers a single system + user exchange
type Completer interface {
	Complete(ctx context.Context, model, system, user string) (string, error)
}

// SpeechGenerator turns text into encoded audio bytes
type SpeechGenerator interface {
	Speech(ctx context.Context, model, voice, text string) ([]byte, error)
}

// Client talks to an OpenAI-compatible endpoint
type Client struct {
	api openai.Client
}

// New creates a client. An empty baseURL uses the OpenAI default.
// Retries are disabled; callers decide whether a failure is worth repeating.
func New(apiKey, baseURL string) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{api: openai.NewClient(opts...)}
}

// Complete returns the trimmed content of the first choice
func (c *Client) Complete(ctx context.Context, model, system, user string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model: model,
	})
	if err != nil {
		return "", classify("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewExternalError("chat completion returned no choices", nil)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Speech returns MP3 bytes for text
func (c *Client) Speech(ctx context.Context, model, voice, text string) ([]byte, error) {
	resp, err := c.api.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, classify("speech", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewExternalError("read speech response", err)
	}
	return data, nil
}

// StripFences removes a surrounding markdown code fence from model output
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop the language tag on the opening line
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "[{") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewTimeoutError(op+" interrupted", err)
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := fmt.Sprintf("%s failed with status %d", op, apiErr.StatusCode)
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperrors.NewPermanentExternalError(msg, err)
		}
		return apperrors.NewExternalError(msg, err)
	}
	return apperrors.NewExternalError(op+" failed", err)
}
