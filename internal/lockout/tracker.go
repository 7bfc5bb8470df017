// Package lockout throttles login attempts with an exponentially growing
// lock window. A single state is shared by every account.
package lockout

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/amirk1998/stockkeeper/internal/models"
)

const (
	DefaultThreshold       = 3
	DefaultInitialDuration = 30 * time.Second
)

type State int

const (
	Open State = iota
	Locked
)

func (s State) String() string {
	if s == Locked {
		return "LOCKED"
	}
	return "OPEN"
}

// Status is a snapshot of the tracker after an operation.
type Status struct {
	State          State
	FailedAttempts uint
	Remaining      time.Duration
	NextDuration   time.Duration
}

type StateRepository interface {
	Load(ctx context.Context) (models.LockoutState, bool, error)
	Save(ctx context.Context, state models.LockoutState) error
}

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithThreshold(n uint) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.threshold = n
		}
	}
}

func WithInitialDuration(d time.Duration) Option {
	return func(t *Tracker) {
		if d >= time.Second {
			t.initial = d
		}
	}
}

// Tracker gates login attempts on the persisted lockout state.
type Tracker struct {
	repo      StateRepository
	now       func() time.Time
	threshold uint
	initial   time.Duration
}

func New(repo StateRepository, opts ...Option) *Tracker {
	t := &Tracker{
		repo:      repo,
		now:       time.Now,
		threshold: DefaultThreshold,
		initial:   DefaultInitialDuration,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) initialState() models.LockoutState {
	return models.LockoutState{LockoutDuration: int64(t.initial / time.Second)}
}

func (t *Tracker) load(ctx context.Context) (models.LockoutState, error) {
	st, ok, err := t.repo.Load(ctx)
	if err != nil {
		return models.LockoutState{}, err
	}
	if !ok {
		return t.initialState(), nil
	}
	st.LockoutDuration = min(st.LockoutDuration, models.MaxLockoutSeconds)
	return st, nil
}

func (t *Tracker) save(ctx context.Context, st models.LockoutState) error {
	if err := t.repo.Save(ctx, st); err != nil {
		return fmt.Errorf("failed to persist lockout state: %w", err)
	}
	return nil
}

// remaining returns how long the lock in st still runs, or 0.
func (t *Tracker) remaining(st models.LockoutState) time.Duration {
	if st.FailedAttempts < t.threshold {
		return 0
	}
	until := time.Unix(st.LockoutStart, 0).Add(time.Duration(st.LockoutDuration) * time.Second)
	return max(until.Sub(t.now()), 0)
}

func (t *Tracker) status(st models.LockoutState) Status {
	s := Status{
		State:          Open,
		FailedAttempts: st.FailedAttempts,
		NextDuration:   time.Duration(st.LockoutDuration) * time.Second,
	}
	if r := t.remaining(st); r > 0 {
		s.State = Locked
		s.Remaining = r
	}
	return s
}

// Check reports whether login attempts are currently allowed. An expired
// lock is released here: attempts reset and the next lock window doubles.
func (t *Tracker) Check(ctx context.Context) (Status, error) {
	st, err := t.load(ctx)
	if err != nil {
		return Status{}, err
	}

	if st.FailedAttempts < t.threshold || t.remaining(st) > 0 {
		return t.status(st), nil
	}

	st.FailedAttempts = 0
	st.LockoutStart = 0
	st.LockoutDuration = min(st.LockoutDuration, models.MaxLockoutSeconds/2) * 2
	if err := t.save(ctx, st); err != nil {
		return Status{}, err
	}
	return t.status(st), nil
}

// RecordFailure counts a failed attempt and starts the lock window when the
// threshold is reached.
func (t *Tracker) RecordFailure(ctx context.Context) (Status, error) {
	st, err := t.load(ctx)
	if err != nil {
		return Status{}, err
	}

	st.FailedAttempts++
	if st.FailedAttempts == t.threshold {
		st.LockoutStart = t.now().Unix()
	}

	if err := t.save(ctx, st); err != nil {
		return Status{}, err
	}
	return t.status(st), nil
}

// RecordSuccess restores the initial state.
func (t *Tracker) RecordSuccess(ctx context.Context) error {
	return t.save(ctx, t.initialState())
}

// Wait is a duration split into calendar-ish units.
type Wait struct {
	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64
}

// Breakdown splits d into whole units, rounding partial seconds up.
func Breakdown(d time.Duration) Wait {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 0 {
		secs = 0
	}
	return Wait{
		Days:    secs / 86400,
		Hours:   secs % 86400 / 3600,
		Minutes: secs % 3600 / 60,
		Seconds: secs % 60,
	}
}

// FormatWait renders d as e.g. "1 day 2 hours 5 seconds".
func FormatWait(d time.Duration) string {
	w := Breakdown(d)

	var parts []string
	add := func(n int64, unit string) {
		switch {
		case n == 1:
			parts = append(parts, "1 "+unit)
		case n > 1:
			parts = append(parts, fmt.Sprintf("%d %ss", n, unit))
		}
	}
	add(w.Days, "day")
	add(w.Hours, "hour")
	add(w.Minutes, "minute")
	add(w.Seconds, "second")

	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, " ")
}
