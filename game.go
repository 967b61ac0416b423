package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/samber/lo"

	"pawpair/internal/memory"
	"pawpair/internal/types"
)

// loadPalette reads the card faces from a JSON file.
func loadPalette(path string) ([]types.FaceEntry, error) {
	logInfo("Loading card faces from %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p types.Palette
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	faces := lo.UniqBy(lo.Filter(p.Faces, func(f types.FaceEntry, _ int) bool {
		if f.Key == "" {
			logWarn("Skipping face with empty key (label %q)", f.Label)
			return false
		}
		return true
	}), func(f types.FaceEntry) string { return f.Key })
	if len(faces) == 0 {
		return nil, fmt.Errorf("palette %s has no usable faces", path)
	}
	return faces, nil
}

// defaultRoundConfig builds the server-wide round defaults from the environment.
func defaultRoundConfig(faces []types.FaceEntry) (memory.Config, error) {
	mode, err := memory.ParseMode(getEnvString("DEFAULT_MODE", "classic"))
	if err != nil {
		return memory.Config{}, err
	}
	keys := lo.Map(faces, func(f types.FaceEntry, _ int) string { return f.Key })
	cfg := memory.Config{
		Pairs:          getEnvInt("DEFAULT_PAIRS", len(keys)),
		Mode:           mode,
		RoundSeconds:   getEnvInt("ROUND_SECONDS", memory.DefaultRoundSeconds),
		PreviewSeconds: getEnvInt("PREVIEW_SECONDS", 0),
		MatchReward:    getEnvInt("MATCH_REWARD", memory.DefaultMatchReward),
		MismatchDelay:  getEnvDuration("MISMATCH_DELAY", memory.DefaultMismatchDelay),
		Keys:           keys,
	}.WithDefaults()
	return cfg, cfg.Validate()
}

// roundConfig applies form overrides on top of the defaults.
func (app *App) roundConfig(form newGameForm) (memory.Config, error) {
	cfg := app.Defaults
	if form.Mode != "" {
		mode, err := memory.ParseMode(form.Mode)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	if form.Pairs > 0 {
		cfg.Pairs = form.Pairs
	}
	if form.Preview > 0 {
		cfg.PreviewSeconds = form.Preview
	}
	if form.Seconds > 0 {
		cfg.RoundSeconds = form.Seconds
	}
	return cfg, cfg.Validate()
}

// createNewRound tears down the session's previous round, if any, and
// stores a freshly shuffled one in its place.
func (app *App) createNewRound(ctx context.Context, sessionID string, cfg memory.Config) (*memory.Round, error) {
	reqID, _ := ctx.Value(requestIDKey).(string)

	opts := []memory.Option{
		memory.WithLogger(app.Logger.With().Str("session", sessionID).Logger()),
	}
	if app.Scheduler != nil {
		opts = append(opts, memory.WithScheduler(app.Scheduler))
	}
	round, err := memory.NewRound(cfg, opts...)
	if err != nil {
		logWarn("[request_id=%v] Rejected round config for session %s: %v", reqID, sessionID, err)
		return nil, err
	}
	round.Start()

	app.SessionMutex.Lock()
	old := app.Sessions[sessionID]
	app.Sessions[sessionID] = &Session{Round: round, LastAccessTime: time.Now()}
	app.SessionMutex.Unlock()

	if old != nil {
		old.Round.Close()
	}
	logInfo("[request_id=%v] New %s round %s for session %s (%d pairs)", reqID, cfg.Mode, round.ID(), sessionID, cfg.Pairs)
	return round, nil
}

// buildRoundView turns a snapshot into what templates and the JSON API
// render. Faces of hidden cards are never sent to the browser.
func (app *App) buildRoundView(s memory.RoundState, message string) types.RoundView {
	cards := lo.Map(s.Cards, func(c memory.Card, _ int) types.CardView {
		v := types.CardView{ID: c.ID, FaceUp: c.FaceUp, Matched: c.Matched}
		if c.FaceUp || c.Matched {
			v.Face = c.PairKey
			v.Label = app.FaceLabels[c.PairKey]
		}
		return v
	})

	clock := formatClock(s.Elapsed)
	if s.TimeRemaining != nil {
		clock = formatClock(*s.TimeRemaining)
	}

	if message == "" {
		switch s.Outcome {
		case memory.Win:
			message = MessageWin
		case memory.Loss:
			message = MessageGameOver
		}
	}

	return types.RoundView{
		RoundID:       s.RoundID,
		Cards:         cards,
		MoveCount:     s.MoveCount,
		Score:         s.Score,
		TimeRemaining: s.TimeRemaining,
		Elapsed:       s.Elapsed,
		Clock:         clock,
		Mode:          s.Mode.String(),
		Phase:         s.Phase.String(),
		Outcome:       s.Outcome.String(),
		Over:          s.Over,
		Locked:        s.Phase == memory.Resolving || s.Phase == memory.Previewing || s.Over,
		Matched:       s.Matched(),
		Total:         len(s.Cards),
		Message:       message,
	}
}
