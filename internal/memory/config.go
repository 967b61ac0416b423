package memory

import (
	"time"

	"github.com/samber/lo"
)

const (
	DefaultRoundSeconds  = 60
	DefaultMatchReward   = 10
	DefaultMismatchDelay = time.Second
)

// DefaultPalette is the set of card faces used when a config names none.
var DefaultPalette = []string{
	"#9b87f5", "#7E69AB", "#6E59A5", "#D6BCFA", "#F2FCE2", "#FEF7CD",
	"#FEC6A1", "#FFDEE2", "#FDE1D3", "#D3E4FD", "#8B5CF6", "#D946EF",
	"#F97316", "#0EA5E9", "#1EAEDB", "#33C3F0", "#FFA99F", "#FFE29F",
}

// Config is everything a round needs at construction time.
type Config struct {
	Pairs          int
	Mode           Mode
	RoundSeconds   int
	PreviewSeconds int
	MatchReward    int
	MismatchDelay  time.Duration
	Keys           []string
}

// WithDefaults returns a copy with zero-valued fields filled in.
// PreviewSeconds stays zero, which disables the preview window.
func (c Config) WithDefaults() Config {
	if len(c.Keys) == 0 {
		c.Keys = DefaultPalette
	}
	if c.Pairs == 0 {
		c.Pairs = len(c.Keys)
	}
	if c.RoundSeconds == 0 {
		c.RoundSeconds = DefaultRoundSeconds
	}
	if c.MatchReward == 0 {
		c.MatchReward = DefaultMatchReward
	}
	if c.MismatchDelay == 0 {
		c.MismatchDelay = DefaultMismatchDelay
	}
	return c
}

// Validate reports the first field that would prevent a round from starting.
func (c Config) Validate() error {
	switch {
	case c.Mode != Classic && c.Mode != TimeAttack:
		return configErrorf("mode", "unknown mode %d", int(c.Mode))
	case c.Pairs < 1:
		return configErrorf("pairs", "need at least one pair, got %d", c.Pairs)
	case c.Pairs > len(c.Keys):
		return configErrorf("pairs", "%d pairs requested but only %d faces available", c.Pairs, len(c.Keys))
	case c.Mode == TimeAttack && c.RoundSeconds < 1:
		return configErrorf("roundSeconds", "time attack needs a positive duration, got %d", c.RoundSeconds)
	case c.PreviewSeconds < 0:
		return configErrorf("previewSeconds", "must not be negative, got %d", c.PreviewSeconds)
	case c.MatchReward < 0:
		return configErrorf("matchReward", "must not be negative, got %d", c.MatchReward)
	case c.MismatchDelay < 0:
		return configErrorf("mismatchDelay", "must not be negative, got %v", c.MismatchDelay)
	}
	if dupes := lo.FindDuplicates(c.Keys[:c.Pairs]); len(dupes) > 0 {
		return configErrorf("keys", "face %q appears more than once", dupes[0])
	}
	return nil
}

// GridPairs converts a rows x cols grid into a pair count.
func GridPairs(rows, cols int) (int, error) {
	if rows < 1 || cols < 1 {
		return 0, configErrorf("grid", "%dx%d is not a grid", rows, cols)
	}
	if (rows*cols)%2 != 0 {
		return 0, configErrorf("grid", "%dx%d has an odd number of cells", rows, cols)
	}
	return rows * cols / 2, nil
}
