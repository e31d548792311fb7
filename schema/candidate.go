package schema

// Candidate is one interview subject and everything recorded about them.
type Candidate struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Phone     string           `json:"phone"`
	Score     *int             `json:"score"`
	Summary   *string          `json:"summary"`
	Interview InterviewSession `json:"interview"`
	CreatedAt Timestamp        `json:"createdAt"`
}

// AppState is the whole persisted state. An empty ActiveInterviewID or
// SelectedCandidateID means none.
type AppState struct {
	Candidates          map[string]Candidate `json:"candidates"`
	ActiveInterviewID   string               `json:"activeInterviewId"`
	SelectedCandidateID string               `json:"selectedCandidateId"`
	IsInitialized       bool                 `json:"isInitialized"`
}

func NewAppState() AppState {
	return AppState{Candidates: map[string]Candidate{}}
}

// Active returns the candidate currently being interviewed.
func (s AppState) Active() (Candidate, bool) {
	if s.ActiveInterviewID == "" {
		return Candidate{}, false
	}
	c, ok := s.Candidates[s.ActiveInterviewID]
	return c, ok
}
