package checker

import (
	"fmt"

	"interviewace/schema"
)

// CheckCandidate verifies the invariants a stored candidate must hold.
func CheckCandidate(c schema.Candidate) error {
	if c.ID == "" {
		return fmt.Errorf("candidate without id")
	}
	if (c.Score == nil) != (c.Summary == nil) {
		return fmt.Errorf("candidate %s: score and summary must be set together", c.ID)
	}
	if c.Score != nil && (*c.Score < 0 || *c.Score > 100) {
		return fmt.Errorf("candidate %s: score %d out of range", c.ID, *c.Score)
	}

	s := c.Interview
	if !s.Status.Valid() {
		return fmt.Errorf("candidate %s: unknown status %q", c.ID, s.Status)
	}
	if !s.MissingInfo.Valid() {
		return fmt.Errorf("candidate %s: unknown missing info %q", c.ID, s.MissingInfo)
	}
	for i, q := range s.Questions {
		if !q.Difficulty.Valid() {
			return fmt.Errorf("candidate %s: question %d has difficulty %q", c.ID, i, q.Difficulty)
		}
	}
	for _, m := range s.ChatHistory {
		if !m.Role.Valid() {
			return fmt.Errorf("candidate %s: message %s has role %q", c.ID, m.ID, m.Role)
		}
	}

	active := s.CurrentQuestionIndex != -1
	if active && (s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.Questions)) {
		return fmt.Errorf("candidate %s: question index %d out of range", c.ID, s.CurrentQuestionIndex)
	}
	if active != (s.QuestionStartTime != nil) {
		return fmt.Errorf("candidate %s: question index and start time disagree", c.ID)
	}
	if active != (s.Status == schema.StatusInProgress) {
		return fmt.Errorf("candidate %s: question index and status %q disagree", c.ID, s.Status)
	}
	return nil
}

// CheckState verifies every candidate and the ids that point into the candidate map.
func CheckState(s schema.AppState) error {
	for id, c := range s.Candidates {
		if id != c.ID {
			return fmt.Errorf("candidate %s stored under key %s", c.ID, id)
		}
		if err := CheckCandidate(c); err != nil {
			return err
		}
	}
	if s.ActiveInterviewID != "" {
		if _, ok := s.Candidates[s.ActiveInterviewID]; !ok {
			return fmt.Errorf("active interview %s not found", s.ActiveInterviewID)
		}
	}
	return nil
}
