package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"interviewace/internal/features"
	logging "interviewace/pkg/logger/pkg"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{features.ErrCandidateNotFound, http.StatusNotFound, "candidate_not_found"},
	{features.ErrNoResumePrompt, http.StatusNotFound, "no_resume_prompt"},
	{features.ErrNotActive, http.StatusConflict, "not_active"},
	{features.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{features.ErrAnswerPending, http.StatusConflict, "answer_pending"},
	{features.ErrEmptyMessage, http.StatusBadRequest, "empty_message"},
}

// respondFeatureError maps orchestrator errors to HTTP responses.
func respondFeatureError(c *gin.Context, err error) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			RespondError(c, e.status, e.code, err)
			return
		}
	}
	logging.Logger(c.Request.Context()).Error("Request failed",
		zap.String("path", c.FullPath()), zap.Error(err))
	RespondError(c, http.StatusInternalServerError, "internal", err)
}
