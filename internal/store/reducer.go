package store

import (
	"time"

	"github.com/google/uuid"

	"interviewace/schema"
)

const IntroMessage = "Hello! I am an AI interviewer from Swipe. Before we begin, I need to confirm a few details. What is your full name?"

// Reducer applies actions to an AppState without mutating it. Now and NewID are
// the only sources of non-determinism.
type Reducer struct {
	Now   func() time.Time
	NewID func() string
}

func NewReducer() *Reducer {
	return &Reducer{
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

// Reduce returns the state that results from applying action to state.
func (r *Reducer) Reduce(state schema.AppState, action Action) schema.AppState {
	next, _ := r.apply(state, action)
	return next
}

// apply reports false when the action was a no-op.
func (r *Reducer) apply(state schema.AppState, action Action) (schema.AppState, bool) {
	switch a := action.(type) {
	case Hydrate:
		next := a.State
		if next.Candidates == nil {
			next.Candidates = map[string]schema.Candidate{}
		}
		next.IsInitialized = true
		return next, true

	case StartNewInterview:
		id := r.NewID()
		candidate := schema.Candidate{
			ID:        id,
			CreatedAt: schema.NewTimestamp(r.Now()),
			Interview: schema.NewInterviewSession(),
		}
		next := withCandidates(state, id, candidate)
		next.ActiveInterviewID = id
		return next, true

	case SetActiveInterview:
		if a.ID != "" && !exists(state, a.ID) {
			return state, false
		}
		state.ActiveInterviewID = a.ID
		return state, true

	case SetSelectedCandidate:
		if a.ID != "" && !exists(state, a.ID) {
			return state, false
		}
		state.SelectedCandidateID = a.ID
		return state, true

	case UpdateCandidateInfo:
		return updateCandidate(state, a.ID, func(c schema.Candidate) schema.Candidate {
			if a.Name != nil {
				c.Name = *a.Name
			}
			if a.Email != nil {
				c.Email = *a.Email
			}
			if a.Phone != nil {
				c.Phone = *a.Phone
			}
			return c
		})

	case AddChatMessage:
		return updateCandidate(state, a.ID, func(c schema.Candidate) schema.Candidate {
			c.Interview.ChatHistory = appendMessage(c.Interview.ChatHistory, a.Message)
			return c
		})

	case SetQuestions:
		return updateCandidate(state, a.ID, func(c schema.Candidate) schema.Candidate {
			questions := make([]schema.Question, len(a.Questions))
			copy(questions, a.Questions)
			start := schema.NewTimestamp(r.Now())
			c.Interview.Questions = questions
			c.Interview.Status = schema.StatusInProgress
			c.Interview.CurrentQuestionIndex = 0
			c.Interview.QuestionStartTime = &start
			return c
		})

	case NextQuestion:
		return updateCandidate(state, a.ID, func(c schema.Candidate) schema.Candidate {
			next := c.Interview.CurrentQuestionIndex + 1
			if next >= len(c.Interview.Questions) {
				c.Interview.CurrentQuestionIndex = -1
				c.Interview.QuestionStartTime = nil
				c.Interview.Status = schema.StatusGeneratingSummary
				return c
			}
			start := schema.NewTimestamp(r.Now())
			c.Interview.CurrentQuestionIndex = next
			c.Interview.QuestionStartTime = &start
			c.Interview.Status = schema.StatusInProgress
			return c
		})

	case UpdateInterviewStatus:
		return updateCandidate(state, a.ID, func(c schema.Candidate) schema.Candidate {
			if a.Status == schema.StatusCollectingInfo && len(c.Interview.ChatHistory) == 0 {
				c.Interview.ChatHistory = []schema.ChatMessage{{
					ID:      "msg-intro-" + r.NewID(),
					Role:    schema.RoleAssistant,
					Content: IntroMessage,
				}}
			}
			c.Interview.Status = a.Status
			if a.MissingInfo != nil {
				c.Interview.MissingInfo = *a.MissingInfo
			}
			return c
		})

	case SetSummaryAndScore:
		return updateCandidate(state, a.ID, func(c schema.Candidate) schema.Candidate {
			summary, score := a.Summary, a.Score
			c.Summary = &summary
			c.Score = &score
			c.Interview.Status = schema.StatusSummaryReady
			return c
		})

	case ResetInterview:
		next, ok := updateCandidate(state, a.ID, func(c schema.Candidate) schema.Candidate {
			c.Score = nil
			c.Summary = nil
			c.Interview = schema.NewInterviewSession()
			return c
		})
		if ok {
			next.ActiveInterviewID = a.ID
		}
		return next, ok

	case ResumeInterview:
		if !exists(state, a.ID) {
			return state, false
		}
		state.ActiveInterviewID = a.ID
		return state, true

	case DismissResumePrompt:
		state.ActiveInterviewID = ""
		return state, true
	}
	return state, false
}

func exists(state schema.AppState, id string) bool {
	_, ok := state.Candidates[id]
	return ok
}

func updateCandidate(state schema.AppState, id string, fn func(schema.Candidate) schema.Candidate) (schema.AppState, bool) {
	c, ok := state.Candidates[id]
	if !ok {
		return state, false
	}
	return withCandidates(state, id, fn(c)), true
}

// withCandidates copies the candidate map so the previous state stays intact.
func withCandidates(state schema.AppState, id string, c schema.Candidate) schema.AppState {
	candidates := make(map[string]schema.Candidate, len(state.Candidates)+1)
	for k, v := range state.Candidates {
		candidates[k] = v
	}
	candidates[id] = c
	state.Candidates = candidates
	return state
}

func appendMessage(history []schema.ChatMessage, m schema.ChatMessage) []schema.ChatMessage {
	out := make([]schema.ChatMessage, len(history), len(history)+1)
	copy(out, history)
	return append(out, m)
}
