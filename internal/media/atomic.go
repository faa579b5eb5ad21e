package media

import (
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
)

// PartPath is the temporary sibling an artifact is written to before it is committed.
// The extension is kept last so ffmpeg can still pick the container from it.
func PartPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".part" + ext
}

// WriteAtomic lets write produce PartPath(path) and renames it onto path only if write succeeds.
// On failure the partial file is removed and path is left untouched.
func WriteAtomic(path string, write func(tmp string) error) error {
	tmp := PartPath(path)
	if err := write(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if _, err := os.Stat(tmp); err != nil {
		return apperrors.NewIOError("no output written to "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.NewIOError("move "+tmp+" into place", err)
	}
	return nil
}

// WriteFileAtomic is os.WriteFile through WriteAtomic
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteAtomic(path, func(tmp string) error {
		if err := os.WriteFile(tmp, data, perm); err != nil {
			return apperrors.NewIOError("write "+tmp, err)
		}
		return nil
	})
}
