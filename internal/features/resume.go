package features

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"interviewace/internal/store"
	"interviewace/schema"
)

var ErrNoResumePrompt = errors.New("no interrupted interview to resume")

// ResumePrompt offers to continue an interview that was left unfinished.
type ResumePrompt struct {
	CandidateID string        `json:"candidateId"`
	Name        string        `json:"name"`
	Status      schema.Status `json:"status"`
}

// DetectResume finds the interrupted interview to offer once the state is
// loaded and nothing is active. The most recently created one wins.
func DetectResume(state schema.AppState) (ResumePrompt, bool) {
	if !state.IsInitialized || state.ActiveInterviewID != "" {
		return ResumePrompt{}, false
	}
	var (
		found schema.Candidate
		ok    bool
	)
	for _, c := range state.Candidates {
		if !c.Interview.Status.Unfinished() {
			continue
		}
		if !ok || c.CreatedAt > found.CreatedAt || (c.CreatedAt == found.CreatedAt && c.ID > found.ID) {
			found, ok = c, true
		}
	}
	if !ok {
		return ResumePrompt{}, false
	}
	return ResumePrompt{CandidateID: found.ID, Name: found.Name, Status: found.Interview.Status}, true
}

// ResumePolicy keeps the current resume prompt up to date.
type ResumePolicy struct {
	store  *store.Store
	logger *zap.Logger

	mu     sync.Mutex
	prompt *ResumePrompt
}

func NewResumePolicy(st *store.Store, logger *zap.Logger) *ResumePolicy {
	return &ResumePolicy{store: st, logger: logger}
}

// Start subscribes the policy to the store. Call it before the store is loaded.
func (p *ResumePolicy) Start() func() {
	return p.store.Subscribe(p.onChange)
}

func (p *ResumePolicy) onChange(ch store.Change) {
	_, hydrate := ch.Action.(store.Hydrate)
	if !hydrate && ch.Prev.ActiveInterviewID == ch.Next.ActiveInterviewID {
		return
	}
	prompt, ok := DetectResume(ch.Next)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !ok {
		p.prompt = nil
		return
	}
	p.prompt = &prompt
	p.logger.Info("Interrupted interview found",
		zap.String("candidateId", prompt.CandidateID),
		zap.String("status", string(prompt.Status)))
}

func (p *ResumePolicy) Prompt() (ResumePrompt, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.prompt == nil {
		return ResumePrompt{}, false
	}
	return *p.prompt, true
}

func (p *ResumePolicy) take() (ResumePrompt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.prompt == nil {
		return ResumePrompt{}, ErrNoResumePrompt
	}
	prompt := *p.prompt
	p.prompt = nil
	return prompt, nil
}

// Resume makes the interrupted interview active again.
func (p *ResumePolicy) Resume(ctx context.Context) (ResumePrompt, error) {
	prompt, err := p.take()
	if err != nil {
		return prompt, err
	}
	p.store.Dispatch(ctx, store.ResumeInterview{ID: prompt.CandidateID})
	return prompt, nil
}

// Restart discards the interrupted progress and starts the candidate over.
func (p *ResumePolicy) Restart(ctx context.Context) (ResumePrompt, error) {
	prompt, err := p.take()
	if err != nil {
		return prompt, err
	}
	p.store.Dispatch(ctx, store.ResetInterview{ID: prompt.CandidateID})
	return prompt, nil
}

// Dismiss hides the prompt without touching the candidate.
func (p *ResumePolicy) Dismiss(ctx context.Context) error {
	if _, err := p.take(); err != nil {
		return err
	}
	p.store.Dispatch(ctx, store.DismissResumePrompt{})
	return nil
}
