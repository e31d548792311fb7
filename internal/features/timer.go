package features

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Countdown is a fixed time budget that started at Start.
type Countdown struct {
	Start    time.Time
	Duration time.Duration
}

func (c Countdown) Deadline() time.Time {
	return c.Start.Add(c.Duration)
}

func (c Countdown) Remaining(now time.Time) time.Duration {
	remaining := c.Deadline().Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingSeconds is the value shown to the candidate: whole seconds, never negative.
func (c Countdown) RemainingSeconds(now time.Time) int {
	return int(math.Round(c.Remaining(now).Seconds()))
}

func (c Countdown) Expired(now time.Time) bool {
	return !now.Before(c.Deadline())
}

// QuestionTimer represents a timer for a specific question
type QuestionTimer struct {
	CandidateID   string
	QuestionIndex int
	Countdown     Countdown
	CancelFunc    context.CancelFunc
	Done          chan struct{}
}

type (
	TimeoutHandler func(candidateID string, questionIndex int)
	TickHandler    func(candidateID string, questionIndex int, remainingSeconds int)
)

// QuestionTimerManager manages all question timers
type QuestionTimerManager struct {
	timers sync.Map // key: "candidateID:questionIndex", value: *QuestionTimer
	logger *zap.Logger
	now    func() time.Time
	onTick TickHandler
}

// NewQuestionTimerManager creates a new timer manager. now is the clock the
// countdowns are measured against.
func NewQuestionTimerManager(logger *zap.Logger, now func() time.Time) *QuestionTimerManager {
	if now == nil {
		now = time.Now
	}
	return &QuestionTimerManager{
		logger: logger,
		now:    now,
	}
}

// OnTick registers a handler called once per second for every running timer.
func (qtm *QuestionTimerManager) OnTick(fn TickHandler) {
	qtm.onTick = fn
}

func timerKey(candidateID string, questionIndex int) string {
	return fmt.Sprintf("%s:%d", candidateID, questionIndex)
}

// StartTimer runs a countdown for one question. Starting a timer that is already
// running is a no-op; any other timer of the same candidate is cancelled.
func (qtm *QuestionTimerManager) StartTimer(candidateID string, questionIndex int, countdown Countdown, onTimeout TimeoutHandler) {
	key := timerKey(candidateID, questionIndex)
	if _, running := qtm.timers.Load(key); running {
		return
	}
	qtm.cleanupCandidateTimers(candidateID, key)

	ctx, cancel := context.WithCancel(context.Background())
	timer := &QuestionTimer{
		CandidateID:   candidateID,
		QuestionIndex: questionIndex,
		Countdown:     countdown,
		CancelFunc:    cancel,
		Done:          make(chan struct{}),
	}
	if _, loaded := qtm.timers.LoadOrStore(key, timer); loaded {
		cancel()
		return
	}

	qtm.logger.Debug("Question timer started",
		zap.String("candidateId", candidateID),
		zap.Int("questionIndex", questionIndex),
		zap.Duration("remaining", countdown.Remaining(qtm.now())))

	go qtm.runTimer(ctx, key, timer, onTimeout)
}

// CancelTimer stops the timer of one question if it is running.
func (qtm *QuestionTimerManager) CancelTimer(candidateID string, questionIndex int) bool {
	return qtm.cancelTimer(timerKey(candidateID, questionIndex))
}

func (qtm *QuestionTimerManager) cancelTimer(key string) bool {
	val, ok := qtm.timers.LoadAndDelete(key)
	if !ok {
		return false
	}
	timer := val.(*QuestionTimer)
	timer.CancelFunc()
	// Wait for goroutine to finish (with timeout to prevent blocking)
	select {
	case <-timer.Done:
		qtm.logger.Debug("Timer cancelled successfully", zap.String("timerKey", key))
	case <-time.After(100 * time.Millisecond):
		qtm.logger.Warn("Timer cancellation timeout", zap.String("timerKey", key))
	}
	return true
}

func (qtm *QuestionTimerManager) runTimer(ctx context.Context, key string, timer *QuestionTimer, onTimeout TimeoutHandler) {
	defer close(timer.Done)

	deadline := time.NewTimer(timer.Countdown.Remaining(qtm.now()))
	defer deadline.Stop()

	var tick <-chan time.Time
	if qtm.onTick != nil {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			qtm.logger.Debug("Timer cancelled",
				zap.String("candidateId", timer.CandidateID),
				zap.Int("questionIndex", timer.QuestionIndex))
			return

		case <-tick:
			qtm.onTick(timer.CandidateID, timer.QuestionIndex, timer.Countdown.RemainingSeconds(qtm.now()))

		case <-deadline.C:
			// A concurrent cancel wins over expiry.
			if !qtm.timers.CompareAndDelete(key, timer) {
				return
			}
			qtm.logger.Info("Question timeout reached",
				zap.String("candidateId", timer.CandidateID),
				zap.Int("questionIndex", timer.QuestionIndex))
			onTimeout(timer.CandidateID, timer.QuestionIndex)
			return
		}
	}
}

// RemainingTime returns the remaining time for a running question timer.
func (qtm *QuestionTimerManager) RemainingTime(candidateID string, questionIndex int) (time.Duration, bool) {
	val, ok := qtm.timers.Load(timerKey(candidateID, questionIndex))
	if !ok {
		return 0, false
	}
	return val.(*QuestionTimer).Countdown.Remaining(qtm.now()), true
}

// Running reports whether a timer for the question is active.
func (qtm *QuestionTimerManager) Running(candidateID string, questionIndex int) bool {
	_, ok := qtm.timers.Load(timerKey(candidateID, questionIndex))
	return ok
}

// CleanupCandidateTimers removes all timers for a specific candidate
func (qtm *QuestionTimerManager) CleanupCandidateTimers(candidateID string) {
	qtm.cleanupCandidateTimers(candidateID, "")
}

func (qtm *QuestionTimerManager) cleanupCandidateTimers(candidateID, keep string) {
	prefix := candidateID + ":"
	qtm.timers.Range(func(key, _ interface{}) bool {
		k := key.(string)
		if k != keep && strings.HasPrefix(k, prefix) {
			qtm.cancelTimer(k)
		}
		return true
	})
}

// Shutdown cancels all timers and cleans up
func (qtm *QuestionTimerManager) Shutdown() {
	qtm.logger.Info("Shutting down question timer manager")
	qtm.timers.Range(func(key, value interface{}) bool {
		qtm.timers.Delete(key)
		value.(*QuestionTimer).CancelFunc()
		return true
	})
}
