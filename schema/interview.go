package schema

import "time"

// Status is a state of the interview state machine.
type Status string

const (
	StatusAwaitingResume      Status = "awaiting_resume"
	StatusCollectingInfo      Status = "collecting_info"
	StatusAwaitingGuidelines  Status = "awaiting_guidelines"
	StatusReadyToStart        Status = "ready_to_start"
	StatusGeneratingQuestions Status = "generating_questions"
	StatusInProgress          Status = "in_progress"
	StatusCompleted           Status = "completed"
	StatusGeneratingSummary   Status = "generating_summary"
	StatusSummaryReady        Status = "summary_ready"
	StatusFinished            Status = "finished"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAwaitingResume, StatusCollectingInfo, StatusAwaitingGuidelines, StatusReadyToStart,
		StatusGeneratingQuestions, StatusInProgress, StatusCompleted, StatusGeneratingSummary,
		StatusSummaryReady, StatusFinished:
		return true
	}
	return false
}

// Unfinished reports whether a session in this status was left mid-flight.
func (s Status) Unfinished() bool {
	switch s {
	case StatusAwaitingResume, StatusFinished, StatusSummaryReady:
		return false
	}
	return true
}

// Reviewable reports whether the candidate belongs on the reviewer dashboard.
func (s Status) Reviewable() bool {
	return s == StatusSummaryReady || s == StatusFinished
}

// MissingInfo names the identity field still being collected. The empty value means none.
type MissingInfo string

const (
	MissingNone  MissingInfo = ""
	MissingName  MissingInfo = "name"
	MissingEmail MissingInfo = "email"
	MissingPhone MissingInfo = "phone"
)

func (m MissingInfo) Valid() bool {
	switch m {
	case MissingNone, MissingName, MissingEmail, MissingPhone:
		return true
	}
	return false
}

// Timestamp is a point in time in Unix milliseconds, the resolution the state blob is stored with.
type Timestamp int64

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

func (t Timestamp) Time() time.Time {
	return time.UnixMilli(int64(t))
}

// InterviewSession is the resumable progress record of one candidate.
type InterviewSession struct {
	Status               Status        `json:"status"`
	Questions            []Question    `json:"questions"`
	ChatHistory          []ChatMessage `json:"chatHistory"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	QuestionStartTime    *Timestamp    `json:"questionStartTime"`
	MissingInfo          MissingInfo   `json:"missingInfo"`
}

// NewInterviewSession returns the initial session shape every candidate starts from.
func NewInterviewSession() InterviewSession {
	return InterviewSession{
		Status:               StatusAwaitingResume,
		Questions:            []Question{},
		ChatHistory:          []ChatMessage{},
		CurrentQuestionIndex: -1,
		MissingInfo:          MissingName,
	}
}

// CurrentQuestion returns the active question, if any.
func (s InterviewSession) CurrentQuestion() (Question, bool) {
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentQuestionIndex], true
}
