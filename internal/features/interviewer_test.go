package features

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"interviewace/internal/store"
	"interviewace/schema"
)

var identity = []string{"Ada Lovelace", "ada@example.com", "555-0100"}

// readyCandidate loads the store and walks a new candidate to ready_to_start.
func readyCandidate(t *testing.T, h *harness) string {
	t.Helper()
	ctx := context.Background()
	h.store.Load(ctx)
	c := h.o.StartNewInterview(ctx)
	if err := h.o.ResumeUploaded(ctx, c.ID); err != nil {
		t.Fatalf("ResumeUploaded: %v", err)
	}
	for _, v := range identity {
		if err := h.o.SubmitMessage(ctx, c.ID, v); err != nil {
			t.Fatalf("SubmitMessage(%q): %v", v, err)
		}
	}
	return c.ID
}

func TestInfoCollection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newFakeGenerator(sixQuestions()...), inlineRunner{}, DefaultSettings(), nil)
	h.store.Load(ctx)

	c := h.o.StartNewInterview(ctx)
	if c.Interview.Status != schema.StatusAwaitingResume || c.Interview.MissingInfo != schema.MissingName {
		t.Fatalf("new candidate status = %s missing = %q; want awaiting_resume/name", c.Interview.Status, c.Interview.MissingInfo)
	}
	if err := h.o.SubmitMessage(ctx, c.ID, "hello"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("SubmitMessage before resume err = %v; want ErrInvalidState", err)
	}
	if err := h.o.ResumeUploaded(ctx, c.ID); err != nil {
		t.Fatalf("ResumeUploaded: %v", err)
	}
	if err := h.o.ResumeUploaded(ctx, c.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second ResumeUploaded err = %v; want ErrInvalidState", err)
	}

	steps := []struct {
		value   string
		status  schema.Status
		missing schema.MissingInfo
		prompt  string
	}{
		{identity[0], schema.StatusCollectingInfo, schema.MissingEmail, promptEmail},
		{identity[1], schema.StatusCollectingInfo, schema.MissingPhone, promptPhone},
		{identity[2], schema.StatusReadyToStart, schema.MissingNone, promptReady},
	}
	for _, step := range steps {
		if err := h.o.SubmitMessage(ctx, c.ID, "  "+step.value+" "); err != nil {
			t.Fatalf("SubmitMessage(%q): %v", step.value, err)
		}
		got := h.candidate(t, c.ID)
		if got.Interview.Status != step.status || got.Interview.MissingInfo != step.missing {
			t.Fatalf("after %q status = %s missing = %q; want %s/%q", step.value, got.Interview.Status, got.Interview.MissingInfo, step.status, step.missing)
		}
		if m := lastMessage(got); m.Role != schema.RoleAssistant || m.Content != step.prompt {
			t.Fatalf("after %q last message = %+v; want prompt %q", step.value, m, step.prompt)
		}
	}

	got := h.candidate(t, c.ID)
	if got.Name != identity[0] || got.Email != identity[1] || got.Phone != identity[2] {
		t.Fatalf("identity = %q/%q/%q; want %v", got.Name, got.Email, got.Phone, identity)
	}
	history := got.Interview.ChatHistory
	if len(history) != 7 || history[0].Content != store.IntroMessage || history[1].Content != identity[0] {
		t.Fatalf("history = %+v; want intro followed by three answer/prompt pairs", history)
	}
}

func TestGuidelinesRoute(t *testing.T) {
	settings := DefaultSettings()
	settings.Guidelines = true
	h := newHarness(t, newFakeGenerator(sixQuestions()...), inlineRunner{}, settings, nil)
	id := readyCandidate(t, h)

	if got := h.candidate(t, id).Interview.Status; got != schema.StatusAwaitingGuidelines {
		t.Fatalf("status = %s; want awaiting_guidelines", got)
	}
	if err := h.o.StartQuestions(context.Background(), id); err != nil {
		t.Fatalf("StartQuestions: %v", err)
	}
	if got := h.candidate(t, id).Interview.Status; got != schema.StatusInProgress {
		t.Fatalf("status = %s; want in_progress", got)
	}
}

func TestSubmitMessageRejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newFakeGenerator(sixQuestions()...), inlineRunner{}, DefaultSettings(), nil)
	id := readyCandidate(t, h)

	cases := []struct {
		name    string
		id      string
		content string
		want    error
	}{
		{"blank", id, "   ", ErrEmptyMessage},
		{"unknown", "ghost", "hi", ErrCandidateNotFound},
		{"ready to start", id, "hi", ErrInvalidState},
	}
	for _, c := range cases {
		if err := h.o.SubmitMessage(ctx, c.id, c.content); !errors.Is(err, c.want) {
			t.Fatalf("%s: err = %v; want %v", c.name, err, c.want)
		}
	}

	if err := h.o.SetActive(ctx, ""); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := h.o.SubmitMessage(ctx, id, "hi"); !errors.Is(err, ErrNotActive) {
		t.Fatalf("inactive: err = %v; want ErrNotActive", err)
	}
	if err := h.o.SetActive(ctx, "ghost"); !errors.Is(err, ErrCandidateNotFound) {
		t.Fatalf("SetActive(ghost) err = %v; want ErrCandidateNotFound", err)
	}
}

func TestFullInterviewFlow(t *testing.T) {
	ctx := context.Background()
	gen := newFakeGenerator(sixQuestions()...)
	h := newHarness(t, gen, inlineRunner{}, DefaultSettings(), nil)
	id := readyCandidate(t, h)

	if err := h.o.StartQuestions(ctx, id); err != nil {
		t.Fatalf("StartQuestions: %v", err)
	}
	if err := h.o.StartQuestions(ctx, id); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second StartQuestions err = %v; want ErrInvalidState", err)
	}
	want := DefaultSettings()
	if req := gen.questionCalls[0]; req.Role != want.Role || req.SkillToTest != want.Skill || req.NumEasy != 2 || req.NumMedium != 2 || req.NumHard != 2 {
		t.Fatalf("question request = %+v; want default settings", req)
	}

	c := h.candidate(t, id)
	if c.Interview.Status != schema.StatusInProgress || c.Interview.CurrentQuestionIndex != 0 {
		t.Fatalf("after StartQuestions status = %s index = %d; want in_progress 0", c.Interview.Status, c.Interview.CurrentQuestionIndex)
	}
	if got := lastMessage(c).Content; got != "Question 1/6 (Easy):\n\nWhat is a closure?" {
		t.Fatalf("question message = %q", got)
	}
	if !h.timers.Running(id, 0) {
		t.Fatalf("timer for question 0 is not running")
	}

	for i := 0; i < 6; i++ {
		answer := "answer " + string(rune('1'+i))
		if err := h.o.SubmitMessage(ctx, id, answer); err != nil {
			t.Fatalf("SubmitMessage(%q): %v", answer, err)
		}
		if h.timers.Running(id, i) {
			t.Fatalf("timer for question %d still running after answer", i)
		}
		if i < 5 && !h.timers.Running(id, i+1) {
			t.Fatalf("timer for question %d not started", i+1)
		}
	}

	c = h.candidate(t, id)
	if c.Interview.Status != schema.StatusSummaryReady {
		t.Fatalf("status = %s; want summary_ready", c.Interview.Status)
	}
	if c.Score == nil || *c.Score != 78 || c.Summary == nil || *c.Summary != "Strong fundamentals." {
		t.Fatalf("score/summary = %v/%v; want 78/Strong fundamentals.", c.Score, c.Summary)
	}
	if gen.summaryCallCount() != 1 {
		t.Fatalf("summary requested %d times; want 1", gen.summaryCallCount())
	}
	if len(gen.feedbackCalls) != 6 || gen.feedbackCalls[2].Question != "Explain the event loop." || gen.feedbackCalls[2].Answer != "answer 3" {
		t.Fatalf("feedback calls = %+v", gen.feedbackCalls)
	}

	for i, q := range c.Interview.Questions {
		m, ok := store.AnswerFor(c, i)
		if !ok || m.Content != "answer "+string(rune('1'+i)) {
			t.Fatalf("answer for question %d = %+v, %v", i, m, ok)
		}
		announced := 0
		for _, msg := range c.Interview.ChatHistory {
			if msg.Role == schema.RoleAssistant && strings.HasSuffix(msg.Content, "\n\n"+q.Question) {
				announced++
			}
		}
		if announced != 1 {
			t.Fatalf("question %d announced %d times; want 1", i, announced)
		}
	}

	feedback := "**Feedback:** Clear answer.\n\n**Suggestion:** Add an example."
	history := c.Interview.ChatHistory
	for i, m := range history {
		if m.Role == schema.RoleUser && m.QuestionNumber != nil {
			if i+1 >= len(history) || history[i+1].Content != feedback {
				t.Fatalf("answer %q not followed by feedback", m.Content)
			}
		}
	}

	transcript := gen.summaryCalls[0].InterviewHistory
	if !strings.HasPrefix(transcript, "assistant: "+store.IntroMessage+"\nuser: Ada Lovelace") || !strings.Contains(transcript, "\nuser: answer 6") {
		t.Fatalf("transcript = %q", transcript)
	}

	if err := h.o.FinishInterview(ctx, id); err != nil {
		t.Fatalf("FinishInterview: %v", err)
	}
	state := h.store.State()
	if state.Candidates[id].Interview.Status != schema.StatusFinished || state.ActiveInterviewID != "" {
		t.Fatalf("after finish status = %s active = %q; want finished and none", state.Candidates[id].Interview.Status, state.ActiveInterviewID)
	}

	blob, _ := h.repo.Load(ctx)
	persisted, err := store.Decode(blob)
	if err != nil {
		t.Fatalf("Decode persisted: %v", err)
	}
	if !reflect.DeepEqual(persisted, state) {
		t.Fatalf("persisted state differs from store state")
	}
}

func TestFeedbackFailureStillAdvances(t *testing.T) {
	ctx := context.Background()
	gen := newFakeGenerator(sixQuestions()...)
	gen.feedbackErr = errors.New("model overloaded")
	h := newHarness(t, gen, inlineRunner{}, DefaultSettings(), nil)
	id := readyCandidate(t, h)
	h.o.StartQuestions(ctx, id)

	before := len(h.candidate(t, id).Interview.ChatHistory)
	if err := h.o.SubmitMessage(ctx, id, "my answer"); err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}
	c := h.candidate(t, id)
	if c.Interview.CurrentQuestionIndex != 1 {
		t.Fatalf("index = %d; want 1", c.Interview.CurrentQuestionIndex)
	}
	// answer + next question, no feedback
	if got := len(c.Interview.ChatHistory) - before; got != 2 {
		t.Fatalf("appended %d messages; want 2", got)
	}
}

func TestQuestionGenerationFailureRegresses(t *testing.T) {
	ctx := context.Background()
	gen := newFakeGenerator()
	gen.questionsErr = errors.New("quota exceeded")
	h := newHarness(t, gen, inlineRunner{}, DefaultSettings(), nil)
	id := readyCandidate(t, h)

	if err := h.o.StartQuestions(ctx, id); err != nil {
		t.Fatalf("StartQuestions: %v", err)
	}
	c := h.candidate(t, id)
	if c.Interview.Status != schema.StatusReadyToStart || len(c.Interview.Questions) != 0 {
		t.Fatalf("status = %s questions = %d; want ready_to_start with none", c.Interview.Status, len(c.Interview.Questions))
	}

	// An empty question set is a failure too.
	gen.questionsErr = nil
	h.o.StartQuestions(ctx, id)
	if got := h.candidate(t, id).Interview.Status; got != schema.StatusReadyToStart {
		t.Fatalf("status after empty generation = %s; want ready_to_start", got)
	}
}

func TestSummaryFailureCompletes(t *testing.T) {
	ctx := context.Background()
	gen := newFakeGenerator(schema.Question{Question: "Only one", Difficulty: schema.DifficultyHard})
	gen.summaryErr = errors.New("timeout")
	h := newHarness(t, gen, inlineRunner{}, Settings{Role: "r", Skill: "s", NumHard: 1}, nil)
	id := readyCandidate(t, h)
	h.o.StartQuestions(ctx, id)

	if err := h.o.SubmitMessage(ctx, id, "done"); err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}
	c := h.candidate(t, id)
	if c.Interview.Status != schema.StatusCompleted || c.Score != nil || c.Summary != nil {
		t.Fatalf("status = %s score = %v; want completed without score", c.Interview.Status, c.Score)
	}
	if err := h.o.FinishInterview(ctx, id); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("FinishInterview on completed err = %v; want ErrInvalidState", err)
	}
}

func TestAnswerPendingAndStaleCompletion(t *testing.T) {
	ctx := context.Background()
	runner := &queueRunner{}
	gen := newFakeGenerator(sixQuestions()...)
	h := newHarness(t, gen, runner, DefaultSettings(), nil)
	id := readyCandidate(t, h)

	h.o.StartQuestions(ctx, id)
	if n := runner.flush(); n != 1 {
		t.Fatalf("flushed %d jobs; want 1", n)
	}

	if err := h.o.SubmitMessage(ctx, id, "first"); err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}
	if err := h.o.SubmitMessage(ctx, id, "again"); !errors.Is(err, ErrAnswerPending) {
		t.Fatalf("second answer err = %v; want ErrAnswerPending", err)
	}
	h.o.expire(id, 0)
	runner.flush()

	c := h.candidate(t, id)
	if c.Interview.CurrentQuestionIndex != 1 {
		t.Fatalf("index = %d; want 1", c.Interview.CurrentQuestionIndex)
	}
	answers := 0
	for _, m := range c.Interview.ChatHistory {
		if m.Role == schema.RoleUser && m.QuestionNumber != nil {
			answers++
		}
	}
	if answers != 1 {
		t.Fatalf("recorded %d answers; want 1", answers)
	}

	// A feedback job that completes after the candidate was reset must not advance it.
	if err := h.o.SubmitMessage(ctx, id, "second"); err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}
	h.store.Dispatch(ctx, store.ResetInterview{ID: id})
	runner.flush()
	c = h.candidate(t, id)
	if c.Interview.Status != schema.StatusAwaitingResume || len(c.Interview.ChatHistory) != 0 {
		t.Fatalf("after stale completion status = %s history = %d; want a clean reset", c.Interview.Status, len(c.Interview.ChatHistory))
	}
}

func TestResetDropsInFlightAnswer(t *testing.T) {
	ctx := context.Background()
	runner := &queueRunner{}
	h := newHarness(t, newFakeGenerator(sixQuestions()...), runner, DefaultSettings(), nil)
	id := readyCandidate(t, h)

	h.o.StartQuestions(ctx, id)
	runner.flush()
	if err := h.o.SubmitMessage(ctx, id, "old answer"); err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}
	stale := runner.take()
	if len(stale) != 1 {
		t.Fatalf("held %d jobs; want 1 feedback job", len(stale))
	}

	// Walk the same candidate back to the first question of a new session.
	h.store.Dispatch(ctx, store.ResetInterview{ID: id})
	h.clock.Advance(time.Second)
	if err := h.o.ResumeUploaded(ctx, id); err != nil {
		t.Fatalf("ResumeUploaded: %v", err)
	}
	for _, v := range identity {
		if err := h.o.SubmitMessage(ctx, id, v); err != nil {
			t.Fatalf("SubmitMessage(%q): %v", v, err)
		}
	}
	if err := h.o.StartQuestions(ctx, id); err != nil {
		t.Fatalf("StartQuestions: %v", err)
	}
	runner.flush()
	if c := h.candidate(t, id); c.Interview.Status != schema.StatusInProgress || c.Interview.CurrentQuestionIndex != 0 {
		t.Fatalf("new session status = %s index = %d; want in_progress/0", c.Interview.Status, c.Interview.CurrentQuestionIndex)
	}

	if err := h.o.SubmitMessage(ctx, id, "new answer"); err != nil {
		t.Fatalf("answer in new session err = %v; want nil", err)
	}
	for _, job := range stale {
		job.Run(ctx)
	}

	c := h.candidate(t, id)
	if c.Interview.CurrentQuestionIndex != 0 {
		t.Fatalf("index after stale feedback = %d; want 0", c.Interview.CurrentQuestionIndex)
	}
	for _, m := range c.Interview.ChatHistory {
		if m.Content == "old answer" || strings.HasPrefix(m.Content, "**Feedback:**") {
			t.Fatalf("stale message %q leaked into the new session", m.Content)
		}
	}

	if n := runner.flush(); n != 1 {
		t.Fatalf("flushed %d jobs; want 1", n)
	}
	c = h.candidate(t, id)
	if c.Interview.CurrentQuestionIndex != 1 {
		t.Fatalf("index after own feedback = %d; want 1", c.Interview.CurrentQuestionIndex)
	}
}

func TestExpiryUsesDraft(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newFakeGenerator(sixQuestions()...), inlineRunner{}, DefaultSettings(), nil)
	id := readyCandidate(t, h)
	h.o.StartQuestions(ctx, id)

	if err := h.o.SaveDraft(ctx, id, "  half an answer "); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	h.o.expire(id, 0)
	if m, ok := store.AnswerFor(h.candidate(t, id), 0); !ok || m.Content != "half an answer" {
		t.Fatalf("answer 0 = %+v, %v; want the draft", m, ok)
	}

	// Expiry without a draft for the current question uses the placeholder.
	h.o.expire(id, 1)
	if m, ok := store.AnswerFor(h.candidate(t, id), 1); !ok || m.Content != NoAnswerPlaceholder {
		t.Fatalf("answer 1 = %+v, %v; want placeholder", m, ok)
	}
}

func inProgressBlob(t *testing.T, started time.Time, active bool, questions ...schema.Question) []byte {
	t.Helper()
	start := schema.NewTimestamp(started)
	session := schema.NewInterviewSession()
	session.Status = schema.StatusInProgress
	session.Questions = questions
	session.CurrentQuestionIndex = 0
	session.QuestionStartTime = &start
	session.MissingInfo = schema.MissingNone
	session.ChatHistory = []schema.ChatMessage{{ID: "m1", Role: schema.RoleAssistant, Content: store.IntroMessage}}

	state := schema.NewAppState()
	state.Candidates["c1"] = schema.Candidate{ID: "c1", Name: "Ada", Interview: session, CreatedAt: start}
	if active {
		state.ActiveInterviewID = "c1"
	}
	blob, err := store.Encode(state)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return blob
}

func TestEasyQuestionExpiry(t *testing.T) {
	clock := newTestClock()
	blob := inProgressBlob(t, clock.Now().Add(-21*time.Second), true,
		schema.Question{Question: "What is a closure?", Difficulty: schema.DifficultyEasy},
		schema.Question{Question: "Design a cache.", Difficulty: schema.DifficultyHard})

	h := newHarness(t, newFakeGenerator(), inlineRunner{}, DefaultSettings(), blob)
	h.store.Load(context.Background())

	waitFor(t, "expiry to advance the question", func() bool {
		return h.store.State().Candidates["c1"].Interview.CurrentQuestionIndex == 1
	})

	c := h.candidate(t, "c1")
	m, ok := store.AnswerFor(c, 0)
	if !ok || m.Content != NoAnswerPlaceholder {
		t.Fatalf("answer 0 = %+v, %v; want placeholder", m, ok)
	}
	if c.Interview.Status != schema.StatusInProgress {
		t.Fatalf("status = %s; want in_progress", c.Interview.Status)
	}
	if got := lastMessage(c).Content; got != "Question 2/2 (Hard):\n\nDesign a cache." {
		t.Fatalf("last message = %q; want question 2", got)
	}
	if !h.timers.Running("c1", 1) {
		t.Fatalf("timer for the hard question is not running")
	}
}

func TestHydrationAnnouncesQuestionOnce(t *testing.T) {
	clock := newTestClock()
	blob := inProgressBlob(t, clock.Now(), true, schema.Question{Question: "Design a cache.", Difficulty: schema.DifficultyHard})
	h := newHarness(t, newFakeGenerator(), inlineRunner{}, DefaultSettings(), blob)
	h.store.Load(context.Background())

	c := h.candidate(t, "c1")
	if len(c.Interview.ChatHistory) != 2 || lastMessage(c).Content != "Question 1/1 (Hard):\n\nDesign a cache." {
		t.Fatalf("history = %+v; want intro and the question", c.Interview.ChatHistory)
	}

	// Switching away and back does not repeat it.
	ctx := context.Background()
	h.o.SetActive(ctx, "")
	if h.timers.Running("c1", 0) {
		t.Fatalf("timer still running for inactive candidate")
	}
	h.o.SetActive(ctx, "c1")
	if got := len(h.candidate(t, "c1").Interview.ChatHistory); got != 2 {
		t.Fatalf("history length = %d; want 2", got)
	}
	if !h.timers.Running("c1", 0) {
		t.Fatalf("timer not restarted for the active candidate")
	}
}

func TestHydrationRecoversInterruptedGeneration(t *testing.T) {
	state := schema.NewAppState()
	generating := schema.NewInterviewSession()
	generating.Status = schema.StatusGeneratingQuestions
	generating.MissingInfo = schema.MissingNone
	summarizing := schema.NewInterviewSession()
	summarizing.Status = schema.StatusGeneratingSummary
	summarizing.MissingInfo = schema.MissingNone
	state.Candidates["q"] = schema.Candidate{ID: "q", Interview: generating, CreatedAt: 1}
	state.Candidates["s"] = schema.Candidate{ID: "s", Interview: summarizing, CreatedAt: 2}
	blob, _ := store.Encode(state)

	gen := newFakeGenerator()
	h := newHarness(t, gen, inlineRunner{}, DefaultSettings(), blob)
	h.store.Load(context.Background())

	if got := h.candidate(t, "q").Interview.Status; got != schema.StatusReadyToStart {
		t.Fatalf("interrupted generation status = %s; want ready_to_start", got)
	}
	if got := h.candidate(t, "s").Interview.Status; got != schema.StatusSummaryReady {
		t.Fatalf("interrupted summary status = %s; want summary_ready", got)
	}
	if gen.summaryCallCount() != 1 {
		t.Fatalf("summary requested %d times; want 1", gen.summaryCallCount())
	}
}

func TestCountdown(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newFakeGenerator(sixQuestions()...), inlineRunner{}, DefaultSettings(), nil)
	id := readyCandidate(t, h)

	if _, err := h.o.Countdown(id); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Countdown before questions err = %v; want ErrInvalidState", err)
	}
	h.o.StartQuestions(ctx, id)

	h.clock.Advance(7400 * time.Millisecond)
	cd, err := h.o.Countdown(id)
	if err != nil {
		t.Fatalf("Countdown: %v", err)
	}
	if cd.RemainingSeconds != 13 || cd.TotalSeconds != 20 || cd.QuestionIndex != 0 {
		t.Fatalf("countdown = %+v; want 13 of 20 at question 0", cd)
	}

	h.clock.Advance(time.Minute)
	if cd, _ := h.o.Countdown(id); cd.RemainingSeconds != 0 {
		t.Fatalf("remaining after deadline = %d; want 0", cd.RemainingSeconds)
	}
}
