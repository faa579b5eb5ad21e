package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/news-shorts/internal/queue"
)

// StatusHandler reports job progress
type StatusHandler struct {
	workerPool *queue.WorkerPool
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(workerPool *queue.WorkerPool) *StatusHandler {
	return &StatusHandler{
		workerPool: workerPool,
	}
}

// Handle returns the current status of a job
func (h *StatusHandler) Handle(c *fiber.Ctx) error {
	status, ok := h.workerPool.Status(c.Params("id"))
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, "Job not found", "ERR_JOB_NOT_FOUND")
	}
	return c.JSON(status)
}
