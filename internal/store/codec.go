package store

import (
	"encoding/json"
	"fmt"

	"interviewace/internal/utils/checker"
	"interviewace/schema"
)

func Encode(state schema.AppState) ([]byte, error) {
	return json.Marshal(state)
}

// Decode parses a persisted blob and rejects states that break the candidate
// invariants.
func Decode(blob []byte) (schema.AppState, error) {
	var state schema.AppState
	if err := json.Unmarshal(blob, &state); err != nil {
		return schema.AppState{}, fmt.Errorf("decode state: %w", err)
	}
	normalize(&state)
	if err := checker.CheckState(state); err != nil {
		return schema.AppState{}, fmt.Errorf("invalid state: %w", err)
	}
	return state, nil
}

// normalize replaces absent collections with empty ones.
func normalize(state *schema.AppState) {
	if state.Candidates == nil {
		state.Candidates = map[string]schema.Candidate{}
	}
	for id, c := range state.Candidates {
		if c.Interview.Questions == nil {
			c.Interview.Questions = []schema.Question{}
		}
		if c.Interview.ChatHistory == nil {
			c.Interview.ChatHistory = []schema.ChatMessage{}
		}
		state.Candidates[id] = c
	}
	if state.SelectedCandidateID != "" {
		if _, ok := state.Candidates[state.SelectedCandidateID]; !ok {
			state.SelectedCandidateID = ""
		}
	}
}
