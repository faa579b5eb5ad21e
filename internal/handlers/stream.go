package handlers

import (
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/news-shorts/internal/queue"
)

// StreamHandler pushes job progress over a WebSocket
type StreamHandler struct {
	workerPool *queue.WorkerPool
	interval   time.Duration
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(workerPool *queue.WorkerPool) *StreamHandler {
	return &StreamHandler{
		workerPool: workerPool,
		interval:   500 * time.Millisecond,
	}
}

// Handle sends a status message whenever the job changes and closes once it is done
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	jobID := c.Params("id")
	log.Printf("WebSocket progress stream opened for job %s", jobID)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last queue.JobStatus
	sent := false
	for {
		status, ok := h.workerPool.Status(jobID)
		if !ok {
			c.WriteJSON(map[string]string{"error": "Job not found", "code": "ERR_JOB_NOT_FOUND"})
			return
		}

		if !sent || status.Status != last.Status || status.Stage != last.Stage {
			if err := c.WriteJSON(status); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}
			last, sent = status, true
		}

		if status.Done() {
			return
		}
		<-ticker.C
	}
}
