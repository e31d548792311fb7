package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"interviewace/internal/features"
	"interviewace/internal/store"
	"interviewace/internal/utils/sort"
	"interviewace/schema"
)

type InterviewHandler struct {
	store  *store.Store
	o      *features.Interviewer
	policy *features.ResumePolicy
	logger *zap.Logger
}

func NewInterviewHandler(st *store.Store, o *features.Interviewer, policy *features.ResumePolicy, logger *zap.Logger) *InterviewHandler {
	return &InterviewHandler{
		store:  st,
		o:      o,
		policy: policy,
		logger: logger,
	}
}

type messageRequest struct {
	Content string `json:"content"`
}

type activeRequest struct {
	ID string `json:"id"`
}

type answerView struct {
	Question   string            `json:"question"`
	Difficulty schema.Difficulty `json:"difficulty"`
	Answer     *string           `json:"answer"`
}

type candidateDetail struct {
	Candidate schema.Candidate `json:"candidate"`
	Answers   []answerView     `json:"answers"`
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /api/state
func (h *InterviewHandler) GetState(c *gin.Context) {
	RespondOK(c, h.store.State())
}

// POST /api/interviews
func (h *InterviewHandler) StartInterview(c *gin.Context) {
	c.JSON(http.StatusCreated, h.o.StartNewInterview(c.Request.Context()))
}

// POST /api/interviews/:id/resume-uploaded
func (h *InterviewHandler) ResumeUploaded(c *gin.Context) {
	id := c.Param("id")
	if err := h.o.ResumeUploaded(c.Request.Context(), id); err != nil {
		respondFeatureError(c, err)
		return
	}
	h.respondCandidate(c, id)
}

// POST /api/interviews/:id/messages
func (h *InterviewHandler) SubmitMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	id := c.Param("id")
	if err := h.o.SubmitMessage(c.Request.Context(), id, req.Content); err != nil {
		respondFeatureError(c, err)
		return
	}
	h.respondCandidate(c, id)
}

// PUT /api/interviews/:id/draft
func (h *InterviewHandler) SaveDraft(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.o.SaveDraft(c.Request.Context(), c.Param("id"), req.Content); err != nil {
		respondFeatureError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/interviews/:id/start
func (h *InterviewHandler) StartQuestions(c *gin.Context) {
	id := c.Param("id")
	if err := h.o.StartQuestions(c.Request.Context(), id); err != nil {
		respondFeatureError(c, err)
		return
	}
	h.respondCandidate(c, id)
}

// POST /api/interviews/:id/finish
func (h *InterviewHandler) FinishInterview(c *gin.Context) {
	id := c.Param("id")
	if err := h.o.FinishInterview(c.Request.Context(), id); err != nil {
		respondFeatureError(c, err)
		return
	}
	h.respondCandidate(c, id)
}

// GET /api/interviews/:id/countdown
func (h *InterviewHandler) Countdown(c *gin.Context) {
	view, err := h.o.Countdown(c.Param("id"))
	if err != nil {
		respondFeatureError(c, err)
		return
	}
	RespondOK(c, view)
}

// GET /api/resume-prompt
func (h *InterviewHandler) GetResumePrompt(c *gin.Context) {
	prompt, ok := h.policy.Prompt()
	if !ok {
		respondFeatureError(c, features.ErrNoResumePrompt)
		return
	}
	RespondOK(c, prompt)
}

// POST /api/resume-prompt/resume
func (h *InterviewHandler) ResumePromptResume(c *gin.Context) {
	prompt, err := h.policy.Resume(c.Request.Context())
	if err != nil {
		respondFeatureError(c, err)
		return
	}
	h.respondCandidate(c, prompt.CandidateID)
}

// POST /api/resume-prompt/restart
func (h *InterviewHandler) ResumePromptRestart(c *gin.Context) {
	prompt, err := h.policy.Restart(c.Request.Context())
	if err != nil {
		respondFeatureError(c, err)
		return
	}
	h.respondCandidate(c, prompt.CandidateID)
}

// POST /api/resume-prompt/dismiss
func (h *InterviewHandler) ResumePromptDismiss(c *gin.Context) {
	if err := h.policy.Dismiss(c.Request.Context()); err != nil {
		respondFeatureError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /api/active
func (h *InterviewHandler) SetActive(c *gin.Context) {
	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.o.SetActive(c.Request.Context(), req.ID); err != nil {
		respondFeatureError(c, err)
		return
	}
	h.logger.Debug("Active interview changed", zap.String("candidateId", req.ID))
	RespondOK(c, gin.H{"activeInterviewId": h.store.State().ActiveInterviewID})
}

// GET /api/candidates?q=&sort=&order=
func (h *InterviewHandler) ListCandidates(c *gin.Context) {
	var sorts []sort.SortMethod
	if column := c.Query("sort"); column != "" {
		if !sort.Contains(store.TableColumns(), column) {
			RespondError(c, http.StatusBadRequest, "invalid_sort", errUnknownColumn(column))
			return
		}
		order, err := sort.ParseSortType(c.Query("order"), sort.SortTypeAsc)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_sort", err)
			return
		}
		sorts = append(sorts, sort.SortMethod{Name: column, Type: order})
	}

	candidates, err := store.Table(h.store.State(), c.Query("q"), sorts)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_sort", err)
		return
	}
	RespondOK(c, gin.H{"candidates": candidates})
}

// GET /api/leaderboard
func (h *InterviewHandler) Leaderboard(c *gin.Context) {
	RespondOK(c, gin.H{"candidates": store.Leaderboard(h.store.State())})
}

// GET /api/candidates/:id
func (h *InterviewHandler) GetCandidate(c *gin.Context) {
	id := c.Param("id")
	if err := h.o.SelectCandidate(c.Request.Context(), id); err != nil {
		respondFeatureError(c, err)
		return
	}
	cand, ok := h.store.State().Candidates[id]
	if !ok {
		respondFeatureError(c, features.ErrCandidateNotFound)
		return
	}

	answers := make([]answerView, 0, len(cand.Interview.Questions))
	for i, q := range cand.Interview.Questions {
		view := answerView{Question: q.Question, Difficulty: q.Difficulty}
		if m, ok := store.AnswerFor(cand, i); ok {
			content := m.Content
			view.Answer = &content
		}
		answers = append(answers, view)
	}
	RespondOK(c, candidateDetail{Candidate: cand, Answers: answers})
}

func (h *InterviewHandler) respondCandidate(c *gin.Context, id string) {
	cand, ok := h.store.State().Candidates[id]
	if !ok {
		respondFeatureError(c, features.ErrCandidateNotFound)
		return
	}
	RespondOK(c, cand)
}

func errUnknownColumn(column string) error {
	return fmt.Errorf("unknown sort column %q", column)
}
