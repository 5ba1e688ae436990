// Package session runs one review session over a resolved due list.
//
// The engine is a front-end agnostic state machine: the terminal loop
// and the web server both drive it through the same transitions. It is
// safe for concurrent use by HTTP handlers; the remote submission call
// happens outside the lock so a slow sync never blocks a stats poll.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/HartreeWorks/skill--mochi-srs/internal/domain"
)

// State identifies where a review run is in its lifecycle.
type State int

const (
	NotStarted State = iota
	Presenting       // a card's question is on display
	Revealed         // the answer has been disclosed
	Grading          // a grade is being recorded and submitted
	NothingDue       // terminal: the due list was empty at start
	Complete         // terminal: every card was graded or skipped
	Aborted          // terminal: the user quit mid-session
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Presenting:
		return "presenting"
	case Revealed:
		return "revealed"
	case Grading:
		return "grading"
	case NothingDue:
		return "nothing-due"
	case Complete:
		return "complete"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// terminal reports whether no further transitions are possible.
func (s State) terminal() bool {
	return s == NothingDue || s == Complete || s == Aborted
}

// Grade is the user's judgement of one card.
type Grade int

const (
	Good Grade = iota
	Again
	Skip
)

var (
	ErrNotStarted    = errors.New("session: not started")
	ErrNoCurrentCard = errors.New("session: no card under review")
	ErrNotRevealed   = errors.New("session: answer not yet revealed")
	ErrGradeInFlight = errors.New("session: a grade is already being recorded")
)

// Submitter sends one review outcome to the remote API.
type Submitter interface {
	SubmitReview(ctx context.Context, cardID string, remembered bool) error
}

// Counts are the session counters. They only ever go up within a run.
type Counts struct {
	Reviewed int `json:"reviewed"`
	Good     int `json:"good"`
	Again    int `json:"again"`
	Skipped  int `json:"skipped"`
}

// Failure records a graded card whose remote submission did not
// succeed. The local outcome stands; the card is never re-presented
// because of a sync failure.
type Failure struct {
	CardID     string
	Remembered bool
	Err        error
}

// CardView is what a front-end may show for the current card. Answer
// stays empty until the card has been revealed.
type CardView struct {
	Position int    `json:"position"` // 1-based
	Total    int    `json:"total"`
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	Revealed bool   `json:"revealed"`
}

// Summary is a point-in-time snapshot of the session.
type Summary struct {
	State    State
	Counts   Counts
	Total    int
	Failures []Failure
}

// Engine sequences cards one at a time. It exclusively owns its state
// for the life of one run and is discarded afterwards.
type Engine struct {
	mu       sync.Mutex
	id       uuid.UUID
	cards    []domain.Card
	cursor   int
	state    State
	counts   Counts
	failures []Failure
	submit   Submitter
}

// New builds an engine over the resolved due list, capped at limit
// cards when limit is positive.
func New(cards []domain.Card, submit Submitter, limit int) *Engine {
	if limit > 0 && limit < len(cards) {
		cards = cards[:limit]
	}
	return &Engine{
		id:     uuid.New(),
		cards:  cards,
		state:  NotStarted,
		submit: submit,
	}
}

// ID identifies the run in logs.
func (e *Engine) ID() uuid.UUID {
	return e.id
}

// Start moves the engine to its first card, or straight to NothingDue
// when the list is empty. Calling Start twice is a no-op.
func (e *Engine) Start() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != NotStarted {
		return e.state
	}
	if len(e.cards) == 0 {
		e.state = NothingDue
	} else {
		e.state = Presenting
	}
	slog.Info("review session started", "session", e.id, "cards", len(e.cards))
	return e.state
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Current returns the view of the card under review. ok is false before
// Start and in every terminal state.
func (e *Engine) Current() (CardView, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == NotStarted || e.state.terminal() {
		return CardView{}, false
	}
	return e.viewLocked(), true
}

func (e *Engine) viewLocked() CardView {
	card := e.cards[e.cursor]
	view := CardView{
		Position: e.cursor + 1,
		Total:    len(e.cards),
		Question: card.Question,
		Revealed: e.state == Revealed || e.state == Grading,
	}
	if view.Revealed {
		view.Answer = card.Answer
	}
	return view
}

// Reveal discloses the current card's answer. Revealing an already
// revealed card returns the same view again, so an HTTP front-end can
// safely retry.
func (e *Engine) Reveal() (CardView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case Presenting:
		e.state = Revealed
		return e.viewLocked(), nil
	case Revealed:
		return e.viewLocked(), nil
	case NotStarted:
		return CardView{}, ErrNotStarted
	case Grading:
		return CardView{}, ErrGradeInFlight
	}
	return CardView{}, ErrNoCurrentCard
}

// Grade records the outcome for the current card and advances. Good and
// Again submit to the remote API synchronously; a submission failure is
// appended to the failure ledger but still counts the card as reviewed.
// Skip never submits. The answer must have been revealed first.
func (e *Engine) Grade(ctx context.Context, grade Grade) error {
	e.mu.Lock()
	switch e.state {
	case Revealed:
	case Presenting:
		e.mu.Unlock()
		return ErrNotRevealed
	case Grading:
		e.mu.Unlock()
		return ErrGradeInFlight
	case NotStarted:
		e.mu.Unlock()
		return ErrNotStarted
	default:
		e.mu.Unlock()
		return ErrNoCurrentCard
	}
	card := e.cards[e.cursor]
	e.state = Grading
	e.mu.Unlock()

	// Submit outside the lock: the client may block on its rate-limit
	// backoff and concurrent reads must stay responsive.
	var submitErr error
	remembered := grade == Good
	if grade != Skip {
		submitErr = e.submit.SubmitReview(ctx, card.ID, remembered)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch grade {
	case Skip:
		e.counts.Skipped++
	default:
		e.counts.Reviewed++
		if remembered {
			e.counts.Good++
		} else {
			e.counts.Again++
		}
		if submitErr != nil {
			e.failures = append(e.failures, Failure{CardID: card.ID, Remembered: remembered, Err: submitErr})
			slog.Warn("review saved locally, API sync failed",
				"session", e.id, "card", card.ID, "error", submitErr)
		}
	}

	// Abort may have fired while the submit was in flight. The outcome
	// above still stands, but a terminal state is never resurrected.
	if e.state != Grading {
		return nil
	}

	e.cursor++
	if e.cursor >= len(e.cards) {
		e.state = Complete
		slog.Info("review session complete", "session", e.id,
			"reviewed", e.counts.Reviewed, "skipped", e.counts.Skipped,
			"failed_syncs", len(e.failures))
	} else {
		e.state = Presenting
	}
	return nil
}

// Abort ends the session early. Terminal states are left untouched.
func (e *Engine) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.terminal() {
		return
	}
	e.state = Aborted
	slog.Info("review session aborted", "session", e.id,
		"reviewed", e.counts.Reviewed, "skipped", e.counts.Skipped)
}

// Summary snapshots the session for the front-end.
func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	failures := make([]Failure, len(e.failures))
	copy(failures, e.failures)
	return Summary{
		State:    e.state,
		Counts:   e.counts,
		Total:    len(e.cards),
		Failures: failures,
	}
}
