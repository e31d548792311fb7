package features

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"interviewace/internal/store"
	"interviewace/internal/utils/sse"
	rabbit "interviewace/pkg/rabbit/pkg"
	"interviewace/schema"
)

const (
	EventStatusChanged = "status_changed"
	EventStateChanged  = "state_changed"
	EventCountdown     = "countdown"
)

// TransitionEvent is published whenever a candidate changes status.
type TransitionEvent struct {
	Type        string           `json:"type"`
	CandidateID string           `json:"candidateId"`
	From        schema.Status    `json:"from,omitempty"`
	To          schema.Status    `json:"to"`
	Score       *int             `json:"score,omitempty"`
	At          schema.Timestamp `json:"at"`
}

// StatusTransitions lists the status changes a store change carries.
// Hydration is not a transition.
func StatusTransitions(ch store.Change, at time.Time) []TransitionEvent {
	if _, ok := ch.Action.(store.Hydrate); ok {
		return nil
	}
	var events []TransitionEvent
	for id, next := range ch.Next.Candidates {
		prev, existed := ch.Prev.Candidates[id]
		if existed && prev.Interview.Status == next.Interview.Status {
			continue
		}
		ev := TransitionEvent{
			Type:        EventStatusChanged,
			CandidateID: id,
			To:          next.Interview.Status,
			Score:       next.Score,
			At:          schema.NewTimestamp(at),
		}
		if existed {
			ev.From = prev.Interview.Status
		}
		events = append(events, ev)
	}
	return events
}

// Notifier forwards store changes to SSE subscribers and status transitions
// to RabbitMQ.
type Notifier struct {
	rabbit rabbit.Rabbit
	hub    *sse.Hub
	logger *zap.Logger
	now    func() time.Time
	queue  chan []byte
}

func NewNotifier(rb rabbit.Rabbit, hub *sse.Hub, logger *zap.Logger) *Notifier {
	return &Notifier{
		rabbit: rb,
		hub:    hub,
		logger: logger,
		now:    time.Now,
		queue:  make(chan []byte, 256),
	}
}

func (n *Notifier) Start(st *store.Store) func() {
	return st.Subscribe(n.onChange)
}

func (n *Notifier) onChange(ch store.Change) {
	n.hub.Broadcast(sse.Event{Type: EventStateChanged, Data: map[string]string{
		"action":      ch.Action.Type(),
		"candidateId": store.CandidateID(ch.Action),
	}})

	for _, ev := range StatusTransitions(ch, n.now()) {
		n.hub.Broadcast(sse.Event{Type: ev.Type, Data: ev})

		body, err := json.Marshal(ev)
		if err != nil {
			n.logger.Error("Failed to encode transition event", zap.Error(err))
			continue
		}
		select {
		case n.queue <- body:
		default:
			n.logger.Warn("Transition queue is full, dropping event",
				zap.String("candidateId", ev.CandidateID), zap.String("to", string(ev.To)))
		}
	}
}

// Tick streams the countdown of a running question.
func (n *Notifier) Tick(candidateID string, questionIndex, remainingSeconds int) {
	n.hub.Broadcast(sse.Event{Type: EventCountdown, Data: CountdownView{
		CandidateID:      candidateID,
		QuestionIndex:    questionIndex,
		RemainingSeconds: remainingSeconds,
	}})
}

// Run publishes queued transition events in order until ctx is done.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case body := <-n.queue:
			if err := n.rabbit.Publish(ctx, body); err != nil {
				n.logger.Error("Failed to publish transition event", zap.Error(err))
			}
		}
	}
}

// ResumeParsedMessage is sent by the resume parser once identity extraction
// has finished.
type ResumeParsedMessage struct {
	CandidateID string `json:"candidateId"`
}

// ResumeParsedHandler consumes resume parser signals. Signals for unknown or
// already advanced candidates are acknowledged and dropped.
func ResumeParsedHandler(o *Interviewer, logger *zap.Logger) func(ctx context.Context, msg amqp.Delivery) error {
	return func(ctx context.Context, msg amqp.Delivery) error {
		var m ResumeParsedMessage
		if err := json.Unmarshal(msg.Body, &m); err != nil {
			return fmt.Errorf("decode resume parsed message: %w", err)
		}
		if m.CandidateID == "" {
			return errors.New("resume parsed message without candidateId")
		}

		err := o.ResumeUploaded(ctx, m.CandidateID)
		if errors.Is(err, ErrCandidateNotFound) || errors.Is(err, ErrInvalidState) {
			logger.Warn("Ignoring resume parsed signal", zap.String("candidateId", m.CandidateID), zap.Error(err))
			return nil
		}
		return err
	}
}
