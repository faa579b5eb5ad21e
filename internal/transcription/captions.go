package transcription

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
	"github.com/codebuildervaibhav/news-shorts/internal/media"
	"github.com/codebuildervaibhav/news-shorts/internal/types"
)

// WriteCaptions saves tokens as a JSON array
func WriteCaptions(path string, tokens []types.CaptionToken) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewIOError("create captions dir", err)
	}
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return apperrors.NewIOError("encode captions", err)
	}
	return media.WriteFileAtomic(path, data, 0644)
}

// ReadCaptions loads a caption file written by WriteCaptions
func ReadCaptions(path string) ([]types.CaptionToken, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIOError("read captions", err)
	}
	var tokens []types.CaptionToken
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, apperrors.NewIOError("decode captions", err)
	}
	return tokens, nil
}

// ToSRT groups tokens into pages of at most maxChars characters and renders them as SubRip
func ToSRT(tokens []types.CaptionToken, maxChars int) string {
	if maxChars <= 0 {
		maxChars = 24
	}

	var b strings.Builder
	index := 0
	var words []string
	var from, to int64
	length := 0

	flush := func() {
		if len(words) == 0 {
			return
		}
		index++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", index, srtTime(from), srtTime(to), strings.Join(words, " "))
		words = words[:0]
		length = 0
	}

	for _, tok := range tokens {
		next := length + len([]rune(tok.Text))
		if len(words) > 0 {
			next++
		}
		if len(words) > 0 && next > maxChars {
			flush()
			next = len([]rune(tok.Text))
		}
		if len(words) == 0 {
			from = tok.FromMs
		}
		words = append(words, tok.Text)
		to = tok.ToMs
		length = next
	}
	flush()

	return b.String()
}

func srtTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3600000
	m := (ms % 3600000) / 60000
	s := (ms % 60000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
