package memory

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Listener observes a round. Calls are made while the round is locked, so a
// listener must not call back into the Round; everything it needs is in the
// snapshot it receives.
type Listener interface {
	StateChanged(state RoundState)
	RoundWon()
	RoundLost()
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	OnState func(RoundState)
	OnWin   func()
	OnLoss  func()
}

func (l ListenerFuncs) StateChanged(s RoundState) {
	if l.OnState != nil {
		l.OnState(s)
	}
}

func (l ListenerFuncs) RoundWon() {
	if l.OnWin != nil {
		l.OnWin()
	}
}

func (l ListenerFuncs) RoundLost() {
	if l.OnLoss != nil {
		l.OnLoss()
	}
}

// Option customises a Round at construction.
type Option func(*Round)

// WithRand sets the shuffle source.
func WithRand(rng *rand.Rand) Option { return func(r *Round) { r.rng = rng } }

// WithScheduler sets where deferred resolutions and clock ticks run.
func WithScheduler(s Scheduler) Option { return func(r *Round) { r.sched = s } }

// WithLogger attaches a logger; rounds are silent by default.
func WithLogger(l zerolog.Logger) Option { return func(r *Round) { r.log = l } }

// WithID overrides the generated round id.
func WithID(id string) Option { return func(r *Round) { r.id = id } }

// Round owns the state of one game and is its only writer. Every event
// (flip intent, clock tick, deferred resolution, preview expiry) is applied
// under a single lock, so events are handled one at a time.
type Round struct {
	id    string
	cfg   Config
	sched Scheduler
	rng   *rand.Rand
	log   zerolog.Logger
	clock *Countdown

	mu        sync.Mutex
	cards     []Card
	index     map[int]int
	pending   []int
	phase     Phase
	outcome   Outcome
	moves     int
	score     int
	deferred  Cancel
	gen       uint64
	closed    bool
	done      chan struct{}
	listeners map[int]Listener
	nextSub   int
}

// NewRound validates cfg, builds a fresh shuffled deck and returns a round
// in the Idle phase.
func NewRound(cfg Config, opts ...Option) (*Round, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Round{
		cfg:       cfg,
		sched:     RealScheduler{},
		log:       zerolog.Nop(),
		done:      make(chan struct{}),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.id == "" {
		r.id = uuid.NewString()
	}
	r.log = r.log.With().Str("round", r.id).Logger()

	cards, err := BuildDeck(cfg.Keys, cfg.Pairs, r.rng)
	if err != nil {
		return nil, err
	}
	r.cards = cards
	r.index = make(map[int]int, len(cards))
	for i, c := range cards {
		r.index[c.ID] = i
	}

	seconds := 0
	if cfg.Mode == TimeAttack {
		seconds = cfg.RoundSeconds
	}
	r.clock = NewCountdown(r.sched, cfg.Mode, seconds, r.onTick, r.onExpire)

	r.log.Debug().
		Str("mode", cfg.Mode.String()).
		Int("pairs", cfg.Pairs).
		Int("preview", cfg.PreviewSeconds).
		Msg("round created")
	return r, nil
}

func (r *Round) ID() string     { return r.id }
func (r *Round) Config() Config { return r.cfg }

// Done is closed when the round is torn down.
func (r *Round) Done() <-chan struct{} { return r.done }

// Subscribe registers l and returns a function that removes it.
func (r *Round) Subscribe(l Listener) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return func() {}
	}
	key := r.nextSub
	r.nextSub++
	r.listeners[key] = l
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, key)
	}
}

// Start opens the preview window when one is configured. It has no effect
// outside Idle or when the preview duration is zero.
func (r *Round) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.phase != Idle || r.cfg.PreviewSeconds == 0 {
		return
	}
	r.phase = Previewing
	for i := range r.cards {
		r.cards[i].FaceUp = true
	}
	gen := r.bumpLocked()
	r.deferred = r.sched.AfterFunc(time.Duration(r.cfg.PreviewSeconds)*time.Second, func() { r.endPreview(gen) })
	r.log.Debug().Int("seconds", r.cfg.PreviewSeconds).Msg("preview started")
	r.emitLocked()
}

// Flip applies a flip intent. Unknown ids return ErrInvalidCardReference;
// every other rejected intent (card already showing, pair being resolved,
// preview running, round over) is silently ignored.
func (r *Round) Flip(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.index[id]
	if !ok {
		return fmt.Errorf("%w: no card with id %d", ErrInvalidCardReference, id)
	}
	if r.closed {
		return nil
	}
	switch r.phase {
	case Previewing, Resolving, GameOver:
		return nil
	case Idle:
		if r.cfg.PreviewSeconds > 0 {
			return nil
		}
	}
	card := &r.cards[pos]
	if card.FaceUp || card.Matched || len(r.pending) >= 2 {
		return nil
	}

	r.phase = Playing
	r.clock.Start()
	card.FaceUp = true
	r.pending = append(r.pending, id)
	if len(r.pending) == 2 {
		r.resolveLocked()
	}
	r.emitLocked()
	if r.phase == GameOver {
		r.emitOutcomeLocked()
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (r *Round) Snapshot() RoundState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Pending returns the ids currently face up awaiting resolution.
func (r *Round) Pending() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.pending)
}

// Close tears the round down. Pending resolutions and the clock are
// cancelled and anything that fires later is ignored. Close is idempotent.
func (r *Round) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.done)
	r.cancelDeferredLocked()
	r.clock.Stop()
	clear(r.listeners)
	r.log.Debug().Msg("round closed")
}

func (r *Round) resolveLocked() {
	r.phase = Resolving
	first, second := r.cardLocked(r.pending[0]), r.cardLocked(r.pending[1])

	if first.PairKey == second.PairKey && first.ID != second.ID {
		first.Matched, second.Matched = true, true
		r.score += r.cfg.MatchReward
		r.moves++
		r.pending = nil
		r.log.Debug().Int("first", first.ID).Int("second", second.ID).Int("score", r.score).Msg("match found")
		if lo.EveryBy(r.cards, func(c Card) bool { return c.Matched }) {
			r.finishLocked(Win)
			return
		}
		r.phase = Playing
		return
	}

	gen := r.bumpLocked()
	r.deferred = r.sched.AfterFunc(r.cfg.MismatchDelay, func() { r.settleMismatch(gen) })
}

func (r *Round) settleMismatch(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || gen != r.gen || r.phase != Resolving {
		return
	}
	r.deferred = nil
	r.hidePendingLocked()
	r.moves++
	r.phase = Playing
	r.log.Debug().Int("moves", r.moves).Msg("mismatch settled")
	r.emitLocked()
}

func (r *Round) endPreview(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || gen != r.gen || r.phase != Previewing {
		return
	}
	r.deferred = nil
	for i := range r.cards {
		r.cards[i].FaceUp = false
	}
	r.phase = Playing
	r.log.Debug().Msg("preview ended")
	r.emitLocked()
}

func (r *Round) onTick(_, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.phase == GameOver {
		return
	}
	r.emitLocked()
}

func (r *Round) onExpire() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.phase == GameOver {
		return
	}
	r.finishLocked(Loss)
	r.emitLocked()
	r.emitOutcomeLocked()
}

// finishLocked moves to GameOver. Any unresolved mismatch is dropped and its
// cards turned back down without counting a move.
func (r *Round) finishLocked(o Outcome) {
	r.cancelDeferredLocked()
	r.hidePendingLocked()
	r.clock.Stop()
	r.phase = GameOver
	r.outcome = o
	r.log.Info().
		Str("outcome", o.String()).
		Int("score", r.score).
		Int("moves", r.moves).
		Msg("round over")
}

func (r *Round) hidePendingLocked() {
	for _, id := range r.pending {
		r.cardLocked(id).FaceUp = false
	}
	r.pending = nil
}

func (r *Round) cancelDeferredLocked() {
	r.gen++
	if r.deferred != nil {
		r.deferred.Stop()
		r.deferred = nil
	}
}

func (r *Round) bumpLocked() uint64 {
	r.gen++
	return r.gen
}

func (r *Round) cardLocked(id int) *Card {
	return &r.cards[r.index[id]]
}

func (r *Round) snapshotLocked() RoundState {
	s := RoundState{
		RoundID:   r.id,
		Cards:     slices.Clone(r.cards),
		MoveCount: r.moves,
		Score:     r.score,
		Elapsed:   r.clock.Elapsed(),
		Mode:      r.cfg.Mode,
		Phase:     r.phase,
		Outcome:   r.outcome,
		Over:      r.phase == GameOver,
		Pending:   slices.Clone(r.pending),
	}
	if r.cfg.Mode == TimeAttack {
		remaining := r.clock.Remaining()
		s.TimeRemaining = &remaining
	}
	return s
}

func (r *Round) emitLocked() {
	if len(r.listeners) == 0 {
		return
	}
	s := r.snapshotLocked()
	for _, l := range r.listeners {
		l.StateChanged(s)
	}
}

func (r *Round) emitOutcomeLocked() {
	for _, l := range r.listeners {
		switch r.outcome {
		case Win:
			l.RoundWon()
		case Loss:
			l.RoundLost()
		}
	}
}
