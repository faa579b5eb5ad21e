package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
	"github.com/codebuildervaibhav/news-shorts/internal/types"
)

// VideoDB stores finished video records in SQLite
type VideoDB struct {
	db *sql.DB
}

// NewVideoDB opens (or creates) the database at dbPath
func NewVideoDB(dbPath string) (*VideoDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS videos (
		global_id TEXT PRIMARY KEY,
		file_path TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		source_url TEXT NOT NULL DEFAULT '',
		source_name TEXT NOT NULL DEFAULT '',
		published_at TEXT NOT NULL DEFAULT '',
		drive_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_videos_created_at ON videos(created_at);
	CREATE INDEX IF NOT EXISTS idx_videos_file_path ON videos(file_path);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %v", err)
	}

	return &VideoDB{db: db}, nil
}

// SaveVideo inserts rec. The global id must be unique.
func (vdb *VideoDB) SaveVideo(ctx context.Context, rec *types.VideoRecord) error {
	if rec.GlobalID == "" || rec.FilePath == "" {
		return apperrors.NewValidationError("video record needs an id and a file path", nil)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO videos (global_id, file_path, title, description, content, source_url, source_name, published_at, drive_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := vdb.db.ExecContext(ctx, query,
		rec.GlobalID, rec.FilePath, rec.Title, rec.Description, rec.Content,
		rec.SourceURL, rec.SourceName, rec.PublishedAt, rec.DriveURL,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return apperrors.NewIOError("save video record", err)
	}
	return nil
}

const selectVideo = `
	SELECT global_id, file_path, title, description, content, source_url, source_name, published_at, drive_url, created_at
	FROM videos`

// GetVideo loads the record with the given global id
func (vdb *VideoDB) GetVideo(ctx context.Context, globalID string) (*types.VideoRecord, error) {
	row := vdb.db.QueryRowContext(ctx, selectVideo+" WHERE global_id = ?", globalID)

	rec, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("video %s not found", globalID), nil)
	}
	if err != nil {
		return nil, apperrors.NewIOError("get video record", err)
	}
	return rec, nil
}

// FindVideoByPath returns the newest record pointing at filePath
func (vdb *VideoDB) FindVideoByPath(ctx context.Context, filePath string) (*types.VideoRecord, error) {
	row := vdb.db.QueryRowContext(ctx, selectVideo+" WHERE file_path = ? ORDER BY created_at DESC LIMIT 1", filePath)

	rec, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no video recorded for %s", filePath), nil)
	}
	if err != nil {
		return nil, apperrors.NewIOError("find video record", err)
	}
	return rec, nil
}

// ListVideos returns the newest records first
func (vdb *VideoDB) ListVideos(ctx context.Context, limit int) ([]*types.VideoRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := vdb.db.QueryContext(ctx, selectVideo+" ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, apperrors.NewIOError("list video records", err)
	}
	defer rows.Close()

	videos := []*types.VideoRecord{}
	for rows.Next() {
		rec, err := scanVideo(rows)
		if err != nil {
			return nil, apperrors.NewIOError("scan video record", err)
		}
		videos = append(videos, rec)
	}
	return videos, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVideo(s scanner) (*types.VideoRecord, error) {
	var (
		rec       types.VideoRecord
		createdAt string
	)
	err := s.Scan(&rec.GlobalID, &rec.FilePath, &rec.Title, &rec.Description, &rec.Content,
		&rec.SourceURL, &rec.SourceName, &rec.PublishedAt, &rec.DriveURL, &createdAt)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	return &rec, nil
}

// Close closes the database connection
func (vdb *VideoDB) Close() error {
	return vdb.db.Close()
}
