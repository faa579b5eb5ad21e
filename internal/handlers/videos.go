package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/news-shorts/internal/queue"
	"github.com/codebuildervaibhav/news-shorts/internal/types"
)

// VideoReader looks up persisted videos
type VideoReader interface {
	GetVideo(ctx context.Context, globalID string) (*types.VideoRecord, error)
	ListVideos(ctx context.Context, limit int) ([]*types.VideoRecord, error)
}

// VideoHandler submits generation jobs and serves finished videos
type VideoHandler struct {
	workerPool *queue.WorkerPool
	videos     VideoReader
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(workerPool *queue.WorkerPool, videos VideoReader) *VideoHandler {
	return &VideoHandler{
		workerPool: workerPool,
		videos:     videos,
	}
}

// CreateRequest is the body of POST /videos
type CreateRequest struct {
	Prompt  string        `json:"prompt"`
	Article types.Article `json:"article"`
}

// Create queues a new video. The prompt falls back to the article description.
func (h *VideoHandler) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", "ERR_INVALID_BODY")
	}

	if strings.TrimSpace(req.Prompt) == "" && strings.TrimSpace(req.Article.Description) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "prompt or article.description is required", "ERR_NO_PROMPT")
	}

	job := queue.NewJob(uuid.New().String(), req.Prompt, req.Article)
	if err := h.workerPool.EnqueueJob(job); err != nil {
		return appErrorJSON(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": "Video generation started",
	})
}

// List returns the newest videos
func (h *VideoHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		return errorJSON(c, fiber.StatusBadRequest, "limit must be between 1 and 500", "ERR_INVALID_LIMIT")
	}

	videos, err := h.videos.ListVideos(c.UserContext(), limit)
	if err != nil {
		return appErrorJSON(c, err)
	}
	return c.JSON(videos)
}

// Get returns one video record
func (h *VideoHandler) Get(c *fiber.Ctx) error {
	rec, err := h.videos.GetVideo(c.UserContext(), c.Params("id"))
	if err != nil {
		return appErrorJSON(c, err)
	}
	return c.JSON(rec)
}

// File streams the rendered MP4
func (h *VideoHandler) File(c *fiber.Ctx) error {
	rec, err := h.videos.GetVideo(c.UserContext(), c.Params("id"))
	if err != nil {
		return appErrorJSON(c, err)
	}
	return c.SendFile(rec.FilePath)
}
