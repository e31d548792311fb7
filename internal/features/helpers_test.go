package features

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"interviewace/internal/repo"
	sv "interviewace/internal/service"
	"interviewace/internal/store"
	"interviewace/schema"
)

// inlineRunner runs every job on the caller's goroutine.
type inlineRunner struct{}

func (inlineRunner) Submit(job Job) bool {
	job.Run(context.Background())
	return true
}

// queueRunner holds jobs until flush is called.
type queueRunner struct {
	mu   sync.Mutex
	jobs []Job
}

func (r *queueRunner) Submit(job Job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return true
}

// take removes the held jobs without running them.
func (r *queueRunner) take() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := r.jobs
	r.jobs = nil
	return jobs
}

func (r *queueRunner) flush() int {
	r.mu.Lock()
	jobs := r.jobs
	r.jobs = nil
	r.mu.Unlock()
	for _, job := range jobs {
		job.Run(context.Background())
	}
	return len(jobs)
}

type fakeGenerator struct {
	mu           sync.Mutex
	questions    []schema.Question
	questionsErr error
	feedbackErr  error
	summary      sv.Summary
	summaryErr   error

	questionCalls []sv.QuestionsRequest
	feedbackCalls []sv.FeedbackRequest
	summaryCalls  []sv.SummaryRequest
}

func newFakeGenerator(questions ...schema.Question) *fakeGenerator {
	return &fakeGenerator{
		questions: questions,
		summary:   sv.Summary{Summary: "Strong fundamentals.", Score: 78},
	}
}

func (g *fakeGenerator) GenerateQuestions(_ context.Context, req sv.QuestionsRequest) ([]sv.Question, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.questionCalls = append(g.questionCalls, req)
	if g.questionsErr != nil {
		return nil, g.questionsErr
	}
	return g.questions, nil
}

func (g *fakeGenerator) GenerateFeedback(_ context.Context, req sv.FeedbackRequest) (*sv.Feedback, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.feedbackCalls = append(g.feedbackCalls, req)
	if g.feedbackErr != nil {
		return nil, g.feedbackErr
	}
	return &sv.Feedback{Feedback: "Clear answer.", Suggestion: "Add an example."}, nil
}

func (g *fakeGenerator) GenerateSummary(_ context.Context, req sv.SummaryRequest) (*sv.Summary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.summaryCalls = append(g.summaryCalls, req)
	if g.summaryErr != nil {
		return nil, g.summaryErr
	}
	s := g.summary
	return &s, nil
}

func (g *fakeGenerator) summaryCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.summaryCalls)
}

func sixQuestions() []schema.Question {
	return []schema.Question{
		{Question: "What is a closure?", Difficulty: schema.DifficultyEasy},
		{Question: "What does HTTP 404 mean?", Difficulty: schema.DifficultyEasy},
		{Question: "Explain the event loop.", Difficulty: schema.DifficultyMedium},
		{Question: "How do database indexes work?", Difficulty: schema.DifficultyMedium},
		{Question: "Design a rate limiter.", Difficulty: schema.DifficultyHard},
		{Question: "Scale a websocket service.", Difficulty: schema.DifficultyHard},
	}
}

// testClock is a settable clock shared by the reducer and the timers.
type testClock struct {
	base   time.Time
	offset atomic.Int64
}

func newTestClock() *testClock {
	return &testClock{base: time.Now()}
}

func (c *testClock) Now() time.Time {
	return c.base.Add(time.Duration(c.offset.Load()))
}

func (c *testClock) Advance(d time.Duration) {
	c.offset.Add(int64(d))
}

type harness struct {
	store  *store.Store
	repo   *repo.Memory
	o      *Interviewer
	policy *ResumePolicy
	gen    *fakeGenerator
	timers *QuestionTimerManager
	clock  *testClock
}

func newHarness(t *testing.T, gen *fakeGenerator, runner Runner, settings Settings, blob []byte) *harness {
	t.Helper()
	logger := zap.NewNop()
	clock := newTestClock()

	n := 0
	reducer := &store.Reducer{
		Now: clock.Now,
		NewID: func() string {
			n++
			return fmt.Sprintf("cand-%d", n)
		},
	}
	mem := repo.NewMemory(blob)
	st := store.New(mem, reducer, logger)
	timers := NewQuestionTimerManager(logger, clock.Now)
	t.Cleanup(timers.Shutdown)

	o := NewInterviewer(st, gen, runner, timers, settings, logger)
	o.now = clock.Now
	o.Start()
	policy := NewResumePolicy(st, logger)
	policy.Start()

	return &harness{store: st, repo: mem, o: o, policy: policy, gen: gen, timers: timers, clock: clock}
}

func (h *harness) candidate(t *testing.T, id string) schema.Candidate {
	t.Helper()
	c, ok := h.store.State().Candidates[id]
	if !ok {
		t.Fatalf("candidate %s not found", id)
	}
	return c
}

func lastMessage(c schema.Candidate) schema.ChatMessage {
	h := c.Interview.ChatHistory
	if len(h) == 0 {
		return schema.ChatMessage{}
	}
	return h[len(h)-1]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
