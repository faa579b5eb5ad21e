package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
)

// LocalStorage lays out per-run working directories under a root
type LocalStorage struct {
	root string
	now  func() time.Time
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{
		root: root,
		now:  time.Now,
	}
}

// Root is the directory every run lives under
func (ls *LocalStorage) Root() string {
	return ls.root
}

// RunDir creates and returns the directory for runID: <root>/2025/01/23/<runID>
func (ls *LocalStorage) RunDir(runID string) (string, error) {
	name := SanitizeFilename(runID)
	if name == "" {
		return "", apperrors.NewValidationError("run id is empty", nil)
	}

	now := ls.now()
	dir := filepath.Join(ls.root,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()),
		name)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", apperrors.NewIOError("create run directory", err)
	}
	return dir, nil
}

// SanitizeFilename replaces characters that are unsafe in file names and caps the length
func SanitizeFilename(name string) string {
	result := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\'':
			return '_'
		}
		if r < 32 {
			return -1
		}
		return r
	}, strings.TrimSpace(name))

	result = strings.Trim(result, ". ")
	if r := []rune(result); len(r) > 100 {
		result = string(r[:100])
	}
	return result
}
