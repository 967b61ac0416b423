package memory

import (
	"errors"
	"testing"
	"time"
)

// Keys A and B give ids 1,2 for A and 3,4 for B regardless of shuffle.
func newTestRound(t *testing.T, cfg Config) (*Round, *ManualScheduler) {
	t.Helper()
	if cfg.Keys == nil {
		cfg.Keys = []string{"A", "B"}
	}
	sched := &ManualScheduler{}
	r, err := NewRound(cfg, WithScheduler(sched), WithRand(NewRNG(1)), WithID("test-round"))
	if err != nil {
		t.Fatalf("NewRound: %v", err)
	}
	t.Cleanup(r.Close)
	return r, sched
}

func mustFlip(t *testing.T, r *Round, ids ...int) {
	t.Helper()
	for _, id := range ids {
		if err := r.Flip(id); err != nil {
			t.Fatalf("Flip(%d): %v", id, err)
		}
	}
}

func cardByID(s RoundState, id int) Card {
	for _, c := range s.Cards {
		if c.ID == id {
			return c
		}
	}
	return Card{}
}

type recorder struct {
	states []RoundState
	wins   int
	losses int
}

func (r *recorder) StateChanged(s RoundState) { r.states = append(r.states, s) }
func (r *recorder) RoundWon()                 { r.wins++ }
func (r *recorder) RoundLost()                { r.losses++ }

func TestMatchScenario(t *testing.T) {
	r, sched := newTestRound(t, Config{Pairs: 2})
	rec := &recorder{}
	r.Subscribe(rec)

	mustFlip(t, r, 1, 2)
	s := r.Snapshot()
	if s.Score != 10 || s.MoveCount != 1 {
		t.Errorf("after first pair score=%d moves=%d, want 10 and 1", s.Score, s.MoveCount)
	}
	if !cardByID(s, 1).Matched || !cardByID(s, 2).Matched {
		t.Error("cards 1 and 2 should be matched")
	}
	if s.Over || s.Phase != Playing {
		t.Errorf("round should still be playing, got phase %v over=%v", s.Phase, s.Over)
	}
	if len(s.Pending) != 0 {
		t.Errorf("pending = %v, want empty", s.Pending)
	}

	mustFlip(t, r, 3, 4)
	s = r.Snapshot()
	if s.Score != 20 || s.MoveCount != 2 {
		t.Errorf("after second pair score=%d moves=%d, want 20 and 2", s.Score, s.MoveCount)
	}
	if !s.Over || s.Outcome != Win || s.Phase != GameOver {
		t.Errorf("round should be won, got phase %v outcome %v over=%v", s.Phase, s.Outcome, s.Over)
	}
	if rec.wins != 1 || rec.losses != 0 {
		t.Errorf("wins=%d losses=%d, want 1 and 0", rec.wins, rec.losses)
	}
	if sched.Pending() != 0 {
		t.Errorf("%d tasks still scheduled after win", sched.Pending())
	}
}

func TestMismatchScenario(t *testing.T) {
	r, sched := newTestRound(t, Config{Pairs: 2})

	mustFlip(t, r, 1, 3)
	s := r.Snapshot()
	if s.Phase != Resolving {
		t.Fatalf("phase = %v, want resolving", s.Phase)
	}
	if !cardByID(s, 1).FaceUp || !cardByID(s, 3).FaceUp {
		t.Error("both mismatched cards should stay visible during the delay")
	}
	if s.MoveCount != 0 {
		t.Errorf("moves = %d before resolution, want 0", s.MoveCount)
	}

	mustFlip(t, r, 2)
	if got := r.Pending(); len(got) != 2 {
		t.Errorf("flip during resolution changed pending to %v", got)
	}
	if cardByID(r.Snapshot(), 2).FaceUp {
		t.Error("flip during resolution should be ignored")
	}

	sched.Advance(999 * time.Millisecond)
	if !cardByID(r.Snapshot(), 1).FaceUp {
		t.Error("cards turned back before the delay elapsed")
	}
	sched.Advance(time.Millisecond)

	s = r.Snapshot()
	for _, id := range []int{1, 3} {
		c := cardByID(s, id)
		if c.FaceUp || c.Matched {
			t.Errorf("card %d after mismatch faceUp=%v matched=%v", id, c.FaceUp, c.Matched)
		}
	}
	if s.MoveCount != 1 || s.Score != 0 {
		t.Errorf("moves=%d score=%d, want 1 and 0", s.MoveCount, s.Score)
	}
	if s.Phase != Playing {
		t.Errorf("phase = %v, want playing", s.Phase)
	}
}

func TestFlipUnknownCard(t *testing.T) {
	r, _ := newTestRound(t, Config{Pairs: 2})
	err := r.Flip(99)
	if !errors.Is(err, ErrInvalidCardReference) {
		t.Errorf("Flip(99) error = %v, want ErrInvalidCardReference", err)
	}
	if r.Snapshot().Phase != Idle {
		t.Error("invalid flip should not change phase")
	}
}

func TestFlipIgnoresVisibleCards(t *testing.T) {
	r, _ := newTestRound(t, Config{Pairs: 2})
	mustFlip(t, r, 1, 1)
	if got := r.Pending(); len(got) != 1 {
		t.Errorf("pending = %v, want just [1]", got)
	}
	mustFlip(t, r, 2, 1, 2)
	s := r.Snapshot()
	if s.Score != 10 || s.MoveCount != 1 {
		t.Errorf("re-flipping matched cards changed score=%d moves=%d", s.Score, s.MoveCount)
	}
}

func TestTimeAttackLoss(t *testing.T) {
	r, sched := newTestRound(t, Config{Pairs: 2, Mode: TimeAttack, RoundSeconds: 3})
	rec := &recorder{}
	r.Subscribe(rec)

	sched.Advance(time.Minute)
	if r.Snapshot().Over {
		t.Fatal("clock should not run before the first flip")
	}

	mustFlip(t, r, 1, 2)
	sched.Advance(2 * time.Second)
	s := r.Snapshot()
	if s.TimeRemaining == nil || *s.TimeRemaining != 1 {
		t.Fatalf("time remaining = %v, want 1", s.TimeRemaining)
	}
	sched.Advance(time.Second)

	s = r.Snapshot()
	if !s.Over || s.Outcome != Loss {
		t.Fatalf("round should be lost, got over=%v outcome=%v", s.Over, s.Outcome)
	}
	if rec.losses != 1 {
		t.Errorf("losses = %d, want 1", rec.losses)
	}

	mustFlip(t, r, 3)
	if cardByID(r.Snapshot(), 3).FaceUp {
		t.Error("flip accepted after the round was lost")
	}
	if s.Score != 10 {
		t.Errorf("score = %d, want 10", s.Score)
	}
}

func TestExpiryDuringResolutionDropsPair(t *testing.T) {
	r, sched := newTestRound(t, Config{Pairs: 2, Mode: TimeAttack, RoundSeconds: 1, MismatchDelay: 5 * time.Second})
	mustFlip(t, r, 1, 3)
	sched.Advance(time.Second)

	s := r.Snapshot()
	if s.Outcome != Loss {
		t.Fatalf("outcome = %v, want loss", s.Outcome)
	}
	if cardByID(s, 1).FaceUp || cardByID(s, 3).FaceUp || len(s.Pending) != 0 {
		t.Error("unresolved pair should be turned down on loss")
	}
	if s.MoveCount != 0 {
		t.Errorf("moves = %d, want 0", s.MoveCount)
	}
	if sched.Pending() != 0 {
		t.Errorf("%d tasks still scheduled after loss", sched.Pending())
	}
	sched.Advance(10 * time.Second)
	if r.Snapshot().MoveCount != 0 {
		t.Error("cancelled mismatch resolution still ran")
	}
}

func TestWinStopsTimer(t *testing.T) {
	r, sched := newTestRound(t, Config{Pairs: 2, Mode: TimeAttack, RoundSeconds: 10})
	rec := &recorder{}
	r.Subscribe(rec)
	mustFlip(t, r, 1, 2, 3, 4)
	sched.Advance(time.Minute)

	s := r.Snapshot()
	if s.Outcome != Win {
		t.Errorf("outcome = %v, want win", s.Outcome)
	}
	if *s.TimeRemaining != 10 {
		t.Errorf("time remaining = %d, want 10", *s.TimeRemaining)
	}
	if rec.losses != 0 {
		t.Error("loss reported after a win")
	}
}

func TestClassicCountsElapsed(t *testing.T) {
	r, sched := newTestRound(t, Config{Pairs: 2})
	mustFlip(t, r, 1)
	sched.Advance(5 * time.Second)
	s := r.Snapshot()
	if s.Elapsed != 5 {
		t.Errorf("elapsed = %d, want 5", s.Elapsed)
	}
	if s.TimeRemaining != nil {
		t.Error("classic rounds should not report time remaining")
	}
	if s.Over {
		t.Error("classic round ended on its own")
	}
}

func TestPreviewWindow(t *testing.T) {
	r, sched := newTestRound(t, Config{Pairs: 2, PreviewSeconds: 2})

	mustFlip(t, r, 1)
	if len(r.Pending()) != 0 {
		t.Fatal("flip accepted before the preview was started")
	}

	r.Start()
	s := r.Snapshot()
	if s.Phase != Previewing {
		t.Fatalf("phase = %v, want previewing", s.Phase)
	}
	for _, c := range s.Cards {
		if !c.FaceUp {
			t.Errorf("card %d hidden during preview", c.ID)
		}
	}
	mustFlip(t, r, 1)
	if len(r.Pending()) != 0 {
		t.Error("flip accepted during preview")
	}

	sched.Advance(2 * time.Second)
	s = r.Snapshot()
	if s.Phase != Playing {
		t.Fatalf("phase = %v, want playing", s.Phase)
	}
	for _, c := range s.Cards {
		if c.FaceUp {
			t.Errorf("card %d still visible after preview", c.ID)
		}
	}
	mustFlip(t, r, 1)
	if len(r.Pending()) != 1 {
		t.Error("flip rejected after preview")
	}
}

func TestStartWithoutPreviewIsNoop(t *testing.T) {
	r, sched := newTestRound(t, Config{Pairs: 2})
	r.Start()
	if r.Snapshot().Phase != Idle || sched.Pending() != 0 {
		t.Error("Start without a preview should do nothing")
	}
}

func TestCloseCancelsScheduledWork(t *testing.T) {
	r, sched := newTestRound(t, Config{Pairs: 2, Mode: TimeAttack, RoundSeconds: 2})
	rec := &recorder{}
	r.Subscribe(rec)
	mustFlip(t, r, 1, 3)
	notified := len(rec.states)

	r.Close()
	r.Close()
	if sched.Pending() != 0 {
		t.Errorf("%d tasks still scheduled after Close", sched.Pending())
	}
	sched.Advance(time.Minute)

	s := r.Snapshot()
	if s.MoveCount != 0 || s.Over {
		t.Errorf("closed round mutated: moves=%d over=%v", s.MoveCount, s.Over)
	}
	if len(rec.states) != notified || rec.losses != 0 {
		t.Error("listener called after Close")
	}
	if err := r.Flip(2); err != nil {
		t.Errorf("Flip on closed round = %v, want nil", err)
	}
}

func TestSubscribeCancel(t *testing.T) {
	r, _ := newTestRound(t, Config{Pairs: 2})
	rec := &recorder{}
	cancel := r.Subscribe(rec)
	mustFlip(t, r, 1)
	cancel()
	mustFlip(t, r, 2)
	if len(rec.states) != 1 {
		t.Errorf("got %d notifications, want 1", len(rec.states))
	}
	if rec.states[0].RoundID != "test-round" || len(rec.states[0].Pending) != 1 {
		t.Errorf("unexpected snapshot %+v", rec.states[0])
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	r, _ := newTestRound(t, Config{Pairs: 2})
	s := r.Snapshot()
	s.Cards[0].FaceUp = true
	if r.Snapshot().Cards[0].FaceUp {
		t.Error("mutating a snapshot changed the round")
	}
}

func TestNewRoundRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"negative pairs", Config{Pairs: -1}, "pairs"},
		{"too many pairs", Config{Pairs: 19}, "pairs"},
		{"unknown mode", Config{Mode: Mode(7)}, "mode"},
		{"negative preview", Config{PreviewSeconds: -1}, "previewSeconds"},
		{"negative reward", Config{MatchReward: -5}, "matchReward"},
		{"negative time attack", Config{Mode: TimeAttack, RoundSeconds: -1}, "roundSeconds"},
		{"duplicate faces", Config{Keys: []string{"A", "A"}}, "keys"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRound(tt.cfg)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("NewRound error = %v, want ErrConfiguration", err)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Field != tt.field {
				t.Errorf("error field = %v, want %s", err, tt.field)
			}
		})
	}
}

func TestNewRoundDefaults(t *testing.T) {
	r, err := NewRound(Config{}, WithScheduler(&ManualScheduler{}))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	cfg := r.Config()
	if cfg.Pairs != 18 || cfg.MatchReward != 10 || cfg.MismatchDelay != time.Second || cfg.RoundSeconds != 60 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if len(r.Snapshot().Cards) != 36 {
		t.Errorf("default deck has %d cards, want 36", len(r.Snapshot().Cards))
	}
	if r.ID() == "" {
		t.Error("round id should be generated")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"classic", Classic, true},
		{"", Classic, true},
		{"timeAttack", TimeAttack, true},
		{"TIME-ATTACK", TimeAttack, true},
		{"blitz", Classic, false},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v", tt.in, got, err)
		}
	}
}

// Random flip sequences interleaved with time never break the pending and
// scoring invariants.
func TestRandomPlayKeepsInvariants(t *testing.T) {
	for seed := uint64(1); seed <= 25; seed++ {
		r, sched := newTestRound(t, Config{
			Pairs:        6,
			Mode:         TimeAttack,
			RoundSeconds: 30,
			Keys:         []string{"a", "b", "c", "d", "e", "f"},
		})
		rng := NewRNG(seed)
		prevScore, prevMoves := 0, 0
		for step := 0; step < 400; step++ {
			before := r.Snapshot()
			if rng.IntN(3) == 0 {
				sched.Advance(time.Duration(rng.IntN(1500)) * time.Millisecond)
			} else {
				mustFlip(t, r, rng.IntN(12)+1)
			}
			s := r.Snapshot()

			if len(s.Pending) > 2 {
				t.Fatalf("seed %d: pending grew to %v", seed, s.Pending)
			}
			if (before.Phase == Resolving || before.Phase == GameOver) && s.MoveCount == before.MoveCount {
				for i := range s.Cards {
					if s.Cards[i].FaceUp && !before.Cards[i].FaceUp {
						t.Fatalf("seed %d: card %d flipped while %v", seed, s.Cards[i].ID, before.Phase)
					}
				}
			}
			if s.Score < prevScore || s.MoveCount < prevMoves {
				t.Fatalf("seed %d: score or moves went backwards", seed)
			}
			if (s.Score-prevScore)%10 != 0 || s.Score-prevScore > 10 {
				t.Fatalf("seed %d: score jumped from %d to %d", seed, prevScore, s.Score)
			}
			if s.Score != 10*s.Matched()/2 {
				t.Fatalf("seed %d: score %d does not match %d matched cards", seed, s.Score, s.Matched())
			}
			prevScore, prevMoves = s.Score, s.MoveCount
			if s.Over {
				break
			}
		}
	}
}

func TestDoneClosesOnClose(t *testing.T) {
	r, _ := newTestRound(t, Config{Pairs: 1})
	select {
	case <-r.Done():
		t.Fatal("Done closed before Close")
	default:
	}
	r.Close()
	select {
	case <-r.Done():
	default:
		t.Error("Done still open after Close")
	}
}
