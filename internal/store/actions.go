package store

import "interviewace/schema"

// Action is a state transition request. The set of actions is closed: only
// types declared in this file implement it.
type Action interface {
	Type() string
	isAction()
}

type (
	Hydrate struct {
		State schema.AppState
	}

	StartNewInterview struct{}

	// SetActiveInterview with an empty ID clears the active interview.
	SetActiveInterview struct {
		ID string
	}

	// SetSelectedCandidate with an empty ID clears the selection.
	SetSelectedCandidate struct {
		ID string
	}

	// UpdateCandidateInfo merges the non-nil fields into the candidate identity.
	UpdateCandidateInfo struct {
		ID    string
		Name  *string
		Email *string
		Phone *string
	}

	AddChatMessage struct {
		ID      string
		Message schema.ChatMessage
	}

	SetQuestions struct {
		ID        string
		Questions []schema.Question
	}

	NextQuestion struct {
		ID string
	}

	// UpdateInterviewStatus leaves missing info untouched when MissingInfo is nil.
	UpdateInterviewStatus struct {
		ID          string
		Status      schema.Status
		MissingInfo *schema.MissingInfo
	}

	SetSummaryAndScore struct {
		ID      string
		Summary string
		Score   int
	}

	ResetInterview struct {
		ID string
	}

	ResumeInterview struct {
		ID string
	}

	DismissResumePrompt struct{}
)

func (Hydrate) Type() string               { return "HYDRATE_STATE" }
func (StartNewInterview) Type() string     { return "START_NEW_INTERVIEW" }
func (SetActiveInterview) Type() string    { return "SET_ACTIVE_INTERVIEW" }
func (SetSelectedCandidate) Type() string  { return "SET_SELECTED_CANDIDATE" }
func (UpdateCandidateInfo) Type() string   { return "UPDATE_CANDIDATE_INFO" }
func (AddChatMessage) Type() string        { return "ADD_CHAT_MESSAGE" }
func (SetQuestions) Type() string          { return "SET_QUESTIONS" }
func (NextQuestion) Type() string          { return "NEXT_QUESTION" }
func (UpdateInterviewStatus) Type() string { return "UPDATE_INTERVIEW_STATUS" }
func (SetSummaryAndScore) Type() string    { return "SET_SUMMARY_AND_SCORE" }
func (ResetInterview) Type() string        { return "RESET_INTERVIEW" }
func (ResumeInterview) Type() string       { return "RESUME_INTERVIEW" }
func (DismissResumePrompt) Type() string   { return "DISMISS_RESUME_PROMPT" }

func (Hydrate) isAction()               {}
func (StartNewInterview) isAction()     {}
func (SetActiveInterview) isAction()    {}
func (SetSelectedCandidate) isAction()  {}
func (UpdateCandidateInfo) isAction()   {}
func (AddChatMessage) isAction()        {}
func (SetQuestions) isAction()          {}
func (NextQuestion) isAction()          {}
func (UpdateInterviewStatus) isAction() {}
func (SetSummaryAndScore) isAction()    {}
func (ResetInterview) isAction()        {}
func (ResumeInterview) isAction()       {}
func (DismissResumePrompt) isAction()   {}

// CandidateID returns the candidate an action targets, or "" for actions
// that are not scoped to one candidate.
func CandidateID(a Action) string {
	switch a := a.(type) {
	case SetActiveInterview:
		return a.ID
	case SetSelectedCandidate:
		return a.ID
	case UpdateCandidateInfo:
		return a.ID
	case AddChatMessage:
		return a.ID
	case SetQuestions:
		return a.ID
	case NextQuestion:
		return a.ID
	case UpdateInterviewStatus:
		return a.ID
	case SetSummaryAndScore:
		return a.ID
	case ResetInterview:
		return a.ID
	case ResumeInterview:
		return a.ID
	}
	return ""
}
