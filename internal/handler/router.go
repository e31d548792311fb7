package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"

	ext "interviewace/internal/utils/extractor"
)

type RouterConfig struct {
	InterviewHandler *InterviewHandler
	SSEHandler       *SSEHandler
}

// AttachMetadata exposes the x-* request headers as incoming metadata and
// makes sure every request carries an x-request-id.
func AttachMetadata() gin.HandlerFunc {
	return func(c *gin.Context) {
		md := ext.Annotate(c.Request)
		requestID := ""
		if ids := md.Get(ext.XRequestID); len(ids) > 0 {
			requestID = ids[0]
		} else {
			requestID = uuid.NewString()
			md.Set(ext.XRequestID, requestID)
		}
		c.Header("X-Request-Id", requestID)

		ctx := metadata.NewIncomingContext(c.Request.Context(), md)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), AttachMetadata())

	router.GET("/healthcheck", HealthCheck)

	h := cfg.InterviewHandler
	api := router.Group("/api")
	{
		api.GET("/state", h.GetState)

		api.POST("/interviews", h.StartInterview)
		api.POST("/interviews/:id/resume-uploaded", h.ResumeUploaded)
		api.POST("/interviews/:id/messages", h.SubmitMessage)
		api.PUT("/interviews/:id/draft", h.SaveDraft)
		api.POST("/interviews/:id/start", h.StartQuestions)
		api.POST("/interviews/:id/finish", h.FinishInterview)
		api.GET("/interviews/:id/countdown", h.Countdown)

		api.GET("/resume-prompt", h.GetResumePrompt)
		api.POST("/resume-prompt/resume", h.ResumePromptResume)
		api.POST("/resume-prompt/restart", h.ResumePromptRestart)
		api.POST("/resume-prompt/dismiss", h.ResumePromptDismiss)

		api.PUT("/active", h.SetActive)

		api.GET("/candidates", h.ListCandidates)
		api.GET("/candidates/:id", h.GetCandidate)
		api.GET("/leaderboard", h.Leaderboard)
	}

	if cfg.SSEHandler != nil {
		router.GET("/sse/stream", cfg.SSEHandler.SSEStream)
	}

	return router
}
