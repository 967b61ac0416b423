package main

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"pawpair/internal/memory"
	"pawpair/internal/types"
)

// App holds everything the handlers share.
type App struct {
	Palette        []types.FaceEntry
	FaceLabels     map[string]string
	Defaults       memory.Config
	Sessions       map[string]*Session
	SessionMutex   sync.RWMutex
	LimiterMap     map[string]*rate.Limiter
	LimiterMutex   sync.Mutex
	IsProduction   bool
	CookieMaxAge   time.Duration
	SessionTimeout time.Duration
	StaticCacheAge time.Duration
	RateLimitRPS   int
	RateLimitBurst int
	StartTime      time.Time
	Logger         zerolog.Logger

	// Scheduler drives round timers; nil means the wall clock.
	Scheduler memory.Scheduler
}

// Session is one browser's current round. The Round is replaced wholesale
// on every new game.
type Session struct {
	Round          *memory.Round
	LastAccessTime time.Time
}

// newGameForm carries optional per-round overrides of the server defaults.
type newGameForm struct {
	Mode    string `form:"mode" binding:"omitempty,oneof=classic timeAttack"`
	Pairs   int    `form:"pairs" binding:"omitempty,min=1"`
	Preview int    `form:"preview" binding:"omitempty,min=0,max=30"`
	Seconds int    `form:"seconds" binding:"omitempty,min=5,max=3600"`
}

type flipForm struct {
	Card int `form:"card" binding:"required"`
}
