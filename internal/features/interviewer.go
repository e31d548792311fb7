package features

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	sv "interviewace/internal/service"
	"interviewace/internal/store"
	"interviewace/schema"
)

var (
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrNotActive         = errors.New("candidate is not the active interview")
	ErrInvalidState      = errors.New("operation not allowed in the current interview state")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrAnswerPending     = errors.New("a message for this candidate is still being processed")
)

const (
	NoAnswerPlaceholder = "(No answer provided)"

	promptEmail = "Thank you. What is your email address?"
	promptPhone = "Great. And finally, what is your phone number?"
	promptReady = "Perfect! All your details are saved. We're ready to begin the interview."
)

// Settings fixes what every interview asks for.
type Settings struct {
	Role       string
	Skill      string
	NumEasy    int
	NumMedium  int
	NumHard    int
	Guidelines bool
}

func DefaultSettings() Settings {
	return Settings{
		Role:      "Full Stack (React/Node)",
		Skill:     "General full-stack knowledge",
		NumEasy:   2,
		NumMedium: 2,
		NumHard:   2,
	}
}

func ReadSettings() Settings {
	s := DefaultSettings()
	if v := viper.GetString("interview.role"); v != "" {
		s.Role = v
	}
	if v := viper.GetString("interview.skill"); v != "" {
		s.Skill = v
	}
	if viper.IsSet("interview.num_easy") {
		s.NumEasy = viper.GetInt("interview.num_easy")
	}
	if viper.IsSet("interview.num_medium") {
		s.NumMedium = viper.GetInt("interview.num_medium")
	}
	if viper.IsSet("interview.num_hard") {
		s.NumHard = viper.GetInt("interview.num_hard")
	}
	s.Guidelines = viper.GetBool("interview.guidelines")
	return s
}

type draft struct {
	questionIndex int
	text          string
}

// Interviewer drives candidates through the interview. It reacts to store
// changes to announce questions, run timers and request the summary, and
// runs every generation call as a Job.
type Interviewer struct {
	store     *store.Store
	generator sv.Generator
	runner    Runner
	timers    *QuestionTimerManager
	settings  Settings
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string

	drafts      sync.Map // candidateID -> draft
	answering   sync.Map // candidateID -> answerClaim
	collecting  sync.Map // candidateID -> struct{}
	summarizing sync.Map // candidateID -> struct{}
}

func NewInterviewer(st *store.Store, generator sv.Generator, runner Runner, timers *QuestionTimerManager, settings Settings, logger *zap.Logger) *Interviewer {
	return &Interviewer{
		store:     st,
		generator: generator,
		runner:    runner,
		timers:    timers,
		settings:  settings,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Start subscribes the interviewer to the store. Call it before the store is
// loaded so hydration is observed.
func (o *Interviewer) Start() func() {
	return o.store.Subscribe(o.onChange)
}

func (o *Interviewer) StartNewInterview(ctx context.Context) schema.Candidate {
	o.store.Dispatch(ctx, store.StartNewInterview{})
	c, _ := o.store.State().Active()
	o.logger.Info("Interview created", zap.String("candidateId", c.ID))
	return c
}

// ResumeUploaded moves a candidate waiting for a resume into info collection.
func (o *Interviewer) ResumeUploaded(ctx context.Context, id string) error {
	missing := schema.MissingName
	ok := o.store.DispatchIf(ctx, hasStatus(id, schema.StatusAwaitingResume),
		store.UpdateInterviewStatus{ID: id, Status: schema.StatusCollectingInfo, MissingInfo: &missing})
	if !ok {
		return o.precondition(id)
	}
	return nil
}

// SubmitMessage records a chat message of the active candidate, either an
// identity field or an answer to the current question.
func (o *Interviewer) SubmitMessage(ctx context.Context, id, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}
	state := o.store.State()
	c, ok := state.Candidates[id]
	if !ok {
		return ErrCandidateNotFound
	}
	if state.ActiveInterviewID != id {
		return ErrNotActive
	}

	switch c.Interview.Status {
	case schema.StatusCollectingInfo:
		return o.collectInfo(ctx, id, content)
	case schema.StatusInProgress:
		return o.answer(ctx, id, c.Interview.CurrentQuestionIndex, content)
	}
	return ErrInvalidState
}

func (o *Interviewer) collectInfo(ctx context.Context, id, value string) error {
	if _, busy := o.collecting.LoadOrStore(id, struct{}{}); busy {
		return ErrAnswerPending
	}
	defer o.collecting.Delete(id)

	c, ok := o.store.State().Candidates[id]
	if !ok {
		return ErrCandidateNotFound
	}
	if c.Interview.Status != schema.StatusCollectingInfo {
		return ErrInvalidState
	}

	var (
		info   = store.UpdateCandidateInfo{ID: id}
		prompt string
		status = schema.StatusCollectingInfo
		next   schema.MissingInfo
	)
	switch c.Interview.MissingInfo {
	case schema.MissingName:
		info.Name, prompt, next = &value, promptEmail, schema.MissingEmail
	case schema.MissingEmail:
		info.Email, prompt, next = &value, promptPhone, schema.MissingPhone
	case schema.MissingPhone:
		info.Phone, prompt, next = &value, promptReady, schema.MissingNone
		status = schema.StatusReadyToStart
		if o.settings.Guidelines {
			status = schema.StatusAwaitingGuidelines
		}
	default:
		return ErrInvalidState
	}

	o.store.Dispatch(ctx, store.AddChatMessage{ID: id, Message: o.message("user", schema.RoleUser, value, nil)})
	o.store.Dispatch(ctx, info)
	o.store.Dispatch(ctx, store.AddChatMessage{ID: id, Message: o.message("info", schema.RoleAssistant, prompt, nil)})
	o.store.Dispatch(ctx, store.UpdateInterviewStatus{ID: id, Status: status, MissingInfo: &next})
	return nil
}

// answer records content as the answer to question idx, then requests feedback
// and advances once feedback has arrived or failed. The question start time
// pins the answer to one session so a reset interview is never advanced by
// work started before the reset.
func (o *Interviewer) answer(ctx context.Context, id string, idx int, content string) error {
	c, ok := o.store.State().Candidates[id]
	if !ok {
		return ErrCandidateNotFound
	}
	s := c.Interview
	if s.Status != schema.StatusInProgress || s.CurrentQuestionIndex != idx || s.QuestionStartTime == nil {
		return ErrInvalidState
	}
	claim := answerClaim{index: idx, start: *s.QuestionStartTime}
	if !o.claimAnswer(id, claim) {
		return ErrAnswerPending
	}
	question := s.Questions[idx]
	current := atQuestion(id, idx, claim.start)

	o.timers.CancelTimer(id, idx)
	o.drafts.Delete(id)

	n := idx
	msg := o.message("user", schema.RoleUser, content, &n)
	if !o.store.DispatchIf(ctx, current, store.AddChatMessage{ID: id, Message: msg}) {
		o.answering.CompareAndDelete(id, claim)
		return ErrInvalidState
	}

	o.submit(Job{
		Name:        "feedback",
		CandidateID: id,
		Run: func(ctx context.Context) {
			defer o.answering.CompareAndDelete(id, claim)

			fb, err := o.generator.GenerateFeedback(ctx, sv.FeedbackRequest{Question: question.Question, Answer: content})
			if err != nil {
				o.logger.Warn("Feedback generation failed, moving on",
					zap.String("candidateId", id), zap.Int("questionIndex", idx), zap.Error(err))
			} else {
				text := fmt.Sprintf("**Feedback:** %s\n\n**Suggestion:** %s", fb.Feedback, fb.Suggestion)
				o.store.DispatchIf(ctx, current,
					store.AddChatMessage{ID: id, Message: o.message("feedback", schema.RoleAssistant, text, nil)})
			}
			o.store.DispatchIf(ctx, current, store.NextQuestion{ID: id})
		},
	})
	return nil
}

// answerClaim identifies one question of one session.
type answerClaim struct {
	index int
	start schema.Timestamp
}

// claimAnswer marks a question as being answered. A claim left over from an
// earlier question or session is replaced.
func (o *Interviewer) claimAnswer(id string, claim answerClaim) bool {
	for {
		v, loaded := o.answering.LoadOrStore(id, claim)
		if !loaded {
			return true
		}
		if v.(answerClaim) == claim {
			return false
		}
		if o.answering.CompareAndSwap(id, v, claim) {
			return true
		}
	}
}

// SaveDraft keeps the candidate's unsent answer so it can be submitted on expiry.
func (o *Interviewer) SaveDraft(ctx context.Context, id, text string) error {
	c, ok := o.store.State().Candidates[id]
	if !ok {
		return ErrCandidateNotFound
	}
	if c.Interview.Status != schema.StatusInProgress {
		return ErrInvalidState
	}
	o.drafts.Store(id, draft{questionIndex: c.Interview.CurrentQuestionIndex, text: text})
	return nil
}

func (o *Interviewer) expire(id string, idx int) {
	content := NoAnswerPlaceholder
	if v, ok := o.drafts.Load(id); ok {
		if d := v.(draft); d.questionIndex == idx && strings.TrimSpace(d.text) != "" {
			content = strings.TrimSpace(d.text)
		}
	}
	if err := o.answer(context.Background(), id, idx, content); err != nil {
		o.logger.Debug("Expired question already handled",
			zap.String("candidateId", id), zap.Int("questionIndex", idx), zap.Error(err))
	}
}

// StartQuestions requests the question set for a candidate that finished info
// collection.
func (o *Interviewer) StartQuestions(ctx context.Context, id string) error {
	ok := o.store.DispatchIf(ctx, hasStatus(id, schema.StatusReadyToStart, schema.StatusAwaitingGuidelines),
		store.UpdateInterviewStatus{ID: id, Status: schema.StatusGeneratingQuestions})
	if !ok {
		return o.precondition(id)
	}

	o.submit(Job{
		Name:        "questions",
		CandidateID: id,
		Run:         func(ctx context.Context) { o.generateQuestions(ctx, id) },
	})
	return nil
}

func (o *Interviewer) generateQuestions(ctx context.Context, id string) {
	req := sv.QuestionsRequest{
		Role:        o.settings.Role,
		NumEasy:     o.settings.NumEasy,
		NumMedium:   o.settings.NumMedium,
		NumHard:     o.settings.NumHard,
		SkillToTest: o.settings.Skill,
	}
	generating := hasStatus(id, schema.StatusGeneratingQuestions)

	questions, err := o.generator.GenerateQuestions(ctx, req)
	if err == nil && len(questions) == 0 {
		err = errors.New("no questions generated")
	}
	if err != nil {
		o.logger.Error("Question generation failed", zap.String("candidateId", id), zap.Error(err))
		o.store.DispatchIf(ctx, generating, store.UpdateInterviewStatus{ID: id, Status: schema.StatusReadyToStart})
		return
	}
	o.logger.Info("Questions generated", zap.String("candidateId", id), zap.Int("count", len(questions)))
	o.store.DispatchIf(ctx, generating, store.SetQuestions{ID: id, Questions: questions})
}

func (o *Interviewer) summarize(id string) {
	if _, busy := o.summarizing.LoadOrStore(id, struct{}{}); busy {
		return
	}
	o.submit(Job{
		Name:        "summary",
		CandidateID: id,
		Run: func(ctx context.Context) {
			defer o.summarizing.Delete(id)

			c, ok := o.store.State().Candidates[id]
			if !ok || c.Interview.Status != schema.StatusGeneratingSummary || c.Summary != nil {
				return
			}
			generating := hasStatus(id, schema.StatusGeneratingSummary)

			summary, err := o.generator.GenerateSummary(ctx, sv.SummaryRequest{InterviewHistory: store.Transcript(c)})
			if err != nil {
				o.logger.Error("Summary generation failed", zap.String("candidateId", id), zap.Error(err))
				o.store.DispatchIf(ctx, generating, store.UpdateInterviewStatus{ID: id, Status: schema.StatusCompleted})
				return
			}
			o.logger.Info("Summary generated", zap.String("candidateId", id), zap.Int("score", summary.Score))
			o.store.DispatchIf(ctx, generating, store.SetSummaryAndScore{ID: id, Summary: summary.Summary, Score: summary.Score})
		},
	})
}

// FinishInterview dismisses a ready result and clears the active interview.
func (o *Interviewer) FinishInterview(ctx context.Context, id string) error {
	ok := o.store.DispatchIf(ctx, hasStatus(id, schema.StatusSummaryReady),
		store.UpdateInterviewStatus{ID: id, Status: schema.StatusFinished})
	if !ok {
		return o.precondition(id)
	}
	o.store.DispatchIf(ctx, func(s schema.AppState) bool { return s.ActiveInterviewID == id },
		store.SetActiveInterview{ID: ""})
	return nil
}

// SetActive makes id the active interview; an empty id clears it.
func (o *Interviewer) SetActive(ctx context.Context, id string) error {
	if id != "" {
		if _, ok := o.store.State().Candidates[id]; !ok {
			return ErrCandidateNotFound
		}
	}
	o.store.Dispatch(ctx, store.SetActiveInterview{ID: id})
	return nil
}

func (o *Interviewer) SelectCandidate(ctx context.Context, id string) error {
	if id != "" {
		if _, ok := o.store.State().Candidates[id]; !ok {
			return ErrCandidateNotFound
		}
	}
	o.store.Dispatch(ctx, store.SetSelectedCandidate{ID: id})
	return nil
}

type CountdownView struct {
	CandidateID      string `json:"candidateId"`
	QuestionIndex    int    `json:"questionIndex"`
	RemainingSeconds int    `json:"remainingSeconds"`
	TotalSeconds     int    `json:"totalSeconds"`
}

// Countdown reports the time left on the candidate's current question.
func (o *Interviewer) Countdown(id string) (CountdownView, error) {
	c, ok := o.store.State().Candidates[id]
	if !ok {
		return CountdownView{}, ErrCandidateNotFound
	}
	cd, ok := countdownFor(c)
	if !ok {
		return CountdownView{}, ErrInvalidState
	}
	return CountdownView{
		CandidateID:      id,
		QuestionIndex:    c.Interview.CurrentQuestionIndex,
		RemainingSeconds: cd.RemainingSeconds(o.now()),
		TotalSeconds:     int(cd.Duration / time.Second),
	}, nil
}

func countdownFor(c schema.Candidate) (Countdown, bool) {
	q, ok := c.Interview.CurrentQuestion()
	if !ok || c.Interview.Status != schema.StatusInProgress || c.Interview.QuestionStartTime == nil {
		return Countdown{}, false
	}
	return Countdown{Start: c.Interview.QuestionStartTime.Time(), Duration: q.Difficulty.TimeLimit()}, true
}

func (o *Interviewer) onChange(ch store.Change) {
	ctx := context.Background()
	_, hydrate := ch.Action.(store.Hydrate)

	for _, id := range affectedCandidates(ch, hydrate) {
		next, ok := ch.Next.Candidates[id]
		if !ok {
			o.timers.CleanupCandidateTimers(id)
			continue
		}
		prev, hadPrev := ch.Prev.Candidates[id]
		o.reconcile(ctx, ch, hydrate, prev, hadPrev, next)
	}
}

func affectedCandidates(ch store.Change, hydrate bool) []string {
	if hydrate {
		ids := make([]string, 0, len(ch.Next.Candidates))
		for id := range ch.Next.Candidates {
			ids = append(ids, id)
		}
		return ids
	}
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		for _, v := range ids {
			if v == id {
				return
			}
		}
		ids = append(ids, id)
	}
	add(store.CandidateID(ch.Action))
	if ch.Prev.ActiveInterviewID != ch.Next.ActiveInterviewID {
		add(ch.Prev.ActiveInterviewID)
		add(ch.Next.ActiveInterviewID)
	}
	return ids
}

// reconcile fires the enter-state effects for one candidate.
func (o *Interviewer) reconcile(ctx context.Context, ch store.Change, hydrate bool, prev schema.Candidate, hadPrev bool, next schema.Candidate) {
	id := next.ID
	s := next.Interview
	isActive := ch.Next.ActiveInterviewID == id
	becameActive := isActive && (hydrate || ch.Prev.ActiveInterviewID != id)
	entered := func(status schema.Status) bool {
		return s.Status == status && (hydrate || !hadPrev || prev.Interview.Status != status)
	}

	if s.Status != schema.StatusInProgress || !isActive {
		o.timers.CleanupCandidateTimers(id)
	}
	if _, reset := ch.Action.(store.ResetInterview); reset {
		o.answering.Delete(id)
		o.drafts.Delete(id)
	}

	if s.Status == schema.StatusInProgress && s.CurrentQuestionIndex >= 0 {
		questionChanged := entered(schema.StatusInProgress) || prev.Interview.CurrentQuestionIndex != s.CurrentQuestionIndex
		if questionChanged || becameActive {
			o.announceQuestion(ctx, next)
			if isActive {
				o.startTimer(next)
			}
		}
	}

	if hydrate && s.Status == schema.StatusGeneratingQuestions {
		o.logger.Info("Question generation was interrupted, returning to ready", zap.String("candidateId", id))
		o.store.DispatchIf(ctx, hasStatus(id, schema.StatusGeneratingQuestions),
			store.UpdateInterviewStatus{ID: id, Status: schema.StatusReadyToStart})
	}

	if entered(schema.StatusGeneratingSummary) && next.Summary == nil {
		o.summarize(id)
	}
}

// announceQuestion posts the current question unless the latest assistant
// message already shows it.
func (o *Interviewer) announceQuestion(ctx context.Context, c schema.Candidate) {
	q, ok := c.Interview.CurrentQuestion()
	if !ok || c.Interview.QuestionStartTime == nil || lastAssistantContains(c.Interview.ChatHistory, q.Question) {
		return
	}
	idx := c.Interview.CurrentQuestionIndex
	text := fmt.Sprintf("Question %d/%d (%s):\n\n%s", idx+1, len(c.Interview.Questions), q.Difficulty, q.Question)
	o.store.DispatchIf(ctx, atQuestion(c.ID, idx, *c.Interview.QuestionStartTime),
		store.AddChatMessage{ID: c.ID, Message: o.message("question", schema.RoleAssistant, text, nil)})
}

func lastAssistantContains(history []schema.ChatMessage, text string) bool {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == schema.RoleAssistant {
			return strings.Contains(history[i].Content, text)
		}
	}
	return false
}

func (o *Interviewer) startTimer(c schema.Candidate) {
	cd, ok := countdownFor(c)
	if !ok {
		return
	}
	o.timers.StartTimer(c.ID, c.Interview.CurrentQuestionIndex, cd, o.expire)
}

func (o *Interviewer) submit(job Job) {
	if o.runner.Submit(job) {
		return
	}
	o.logger.Warn("Worker pool rejected job, running it directly",
		zap.String("job", job.Name), zap.String("candidateId", job.CandidateID))
	go job.Run(context.Background())
}

func (o *Interviewer) message(kind string, role schema.Role, content string, questionNumber *int) schema.ChatMessage {
	return schema.ChatMessage{
		ID:             "msg-" + kind + "-" + o.newID(),
		Role:           role,
		Content:        content,
		QuestionNumber: questionNumber,
	}
}

func (o *Interviewer) precondition(id string) error {
	if _, ok := o.store.State().Candidates[id]; !ok {
		return ErrCandidateNotFound
	}
	return ErrInvalidState
}

func hasStatus(id string, statuses ...schema.Status) func(schema.AppState) bool {
	return func(s schema.AppState) bool {
		c, ok := s.Candidates[id]
		if !ok {
			return false
		}
		for _, st := range statuses {
			if c.Interview.Status == st {
				return true
			}
		}
		return false
	}
}

// atQuestion holds while question idx, started at start, is still the one
// being asked.
func atQuestion(id string, idx int, start schema.Timestamp) func(schema.AppState) bool {
	return func(s schema.AppState) bool {
		c, ok := s.Candidates[id]
		if !ok {
			return false
		}
		in := c.Interview
		return in.Status == schema.StatusInProgress && in.CurrentQuestionIndex == idx &&
			in.QuestionStartTime != nil && *in.QuestionStartTime == start
	}
}
