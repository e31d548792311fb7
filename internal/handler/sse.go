package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	ext "interviewace/internal/utils/extractor"
	"interviewace/internal/utils/sse"
)

type SSEHandler struct {
	hub       *sse.Hub
	extractor ext.Extractor
	heartbeat time.Duration
	logger    *zap.Logger
}

func NewSSEHandler(hub *sse.Hub, heartbeat time.Duration, logger *zap.Logger) *SSEHandler {
	if heartbeat <= 0 {
		heartbeat = 60 * time.Second
	}
	return &SSEHandler{
		hub:       hub,
		extractor: ext.New(),
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// GET /sse/stream
func (h *SSEHandler) SSEStream(c *gin.Context) {
	ctx := c.Request.Context()
	clientID := h.extractor.GetClientID(ctx)
	if clientID == "" {
		clientID = uuid.NewString()
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	ch := make(chan sse.Event, 32)
	h.hub.Register(clientID, ch)
	defer h.hub.Unregister(clientID, ch)

	h.logger.Debug("SSE client connected", zap.String("clientId", clientID))
	h.write(c, sse.Event{Type: "connection_established", Data: gin.H{
		"clientId":  clientID,
		"timestamp": time.Now().Unix(),
	}})

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE client disconnected", zap.String("clientId", clientID))
			return

		case <-heartbeat.C:
			h.write(c, sse.Event{Type: "heartbeat", Data: gin.H{"timestamp": time.Now().Unix()}})

		case ev := <-ch:
			h.write(c, ev)
		}
	}
}

func (h *SSEHandler) write(c *gin.Context, ev sse.Event) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		h.logger.Error("Failed to encode SSE event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, data)
	c.Writer.Flush()
}
