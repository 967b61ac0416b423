package main

import (
	"context"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"
	"golang.org/x/time/rate"

	"pawpair/internal/memory"
	"pawpair/internal/types"
)

func main() {
	_ = godotenv.Load()

	isProduction := os.Getenv("GIN_MODE") == "release" || os.Getenv("ENV") == "production"
	setupLogging(isProduction)
	logInfo("Starting Paw Pair in %s mode", map[bool]string{true: "production", false: "development"}[isProduction])

	app, err := newApp(isProduction, "data/palette.json")
	if err != nil {
		logFatal("Failed to initialise: %v", err)
	}
	logInfo("Loaded %d card faces, default round: %s with %d pairs", len(app.Palette), app.Defaults.Mode, app.Defaults.Pairs)

	templates, static := "templates", "static"
	if isProduction && dirExists("dist") {
		logInfo("Serving assets from dist/ directory")
		templates, static = "dist/templates", "dist/static"
	} else {
		logInfo("Serving development assets from source directories")
	}
	router := app.newRouter(templates+"/*.html", static)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go app.runSessionSweeper(ctx, getEnvDuration("SWEEP_INTERVAL", 5*time.Minute))

	startServer(ctx, router)
}

// setupLogging configures the global zerolog logger from LOG_LEVEL.
func setupLogging(production bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	if lvl, err := zerolog.ParseLevel(getEnvString("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if !production {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// newApp loads the palette and reads the environment into an App.
func newApp(isProduction bool, palettePath string) (*App, error) {
	faces, err := loadPalette(palettePath)
	if err != nil {
		return nil, err
	}
	defaults, err := defaultRoundConfig(faces)
	if err != nil {
		return nil, err
	}
	return &App{
		Palette:        faces,
		FaceLabels:     lo.Associate(faces, func(f types.FaceEntry) (string, string) { return f.Key, f.Label }),
		Defaults:       defaults,
		Sessions:       make(map[string]*Session),
		LimiterMap:     make(map[string]*rate.Limiter),
		IsProduction:   isProduction,
		CookieMaxAge:   getEnvDuration("COOKIE_MAX_AGE", 2*time.Hour),
		SessionTimeout: getEnvDuration("SESSION_TIMEOUT", 2*time.Hour),
		StaticCacheAge: getEnvDuration("STATIC_CACHE_AGE", 5*time.Minute),
		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
		StartTime:      time.Now(),
		Logger:         log.Logger,
		Scheduler:      memory.RealScheduler{},
	}, nil
}

// newRouter wires middleware, templates and routes.
func (app *App) newRouter(templateGlob, staticDir string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestIDMiddleware(), app.requestLogger())
	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedExtensions([]string{".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif"}),
		ginGzip.WithExcludedPaths([]string{"/static/fonts", RouteEvents})))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logWarn("Failed to set trusted proxies: %v", err)
	}

	router.Use(func(c *gin.Context) {
		applyCacheHeaders(c, app.IsProduction, app.StaticCacheAge)
	})

	router.SetFuncMap(template.FuncMap{
		"clock":     formatClock,
		"hasPrefix": strings.HasPrefix,
	})
	router.LoadHTMLGlob(templateGlob)
	if staticDir != "" {
		router.Static("/static", staticDir)
	}

	router.GET(RouteHome, app.homeHandler)
	router.GET(RouteNewGame, app.newGameHandler)
	router.POST(RouteNewGame, app.rateLimitMiddleware(), app.newGameHandler)
	router.POST(RouteFlip, app.rateLimitMiddleware(), app.flipHandler)
	router.GET(RouteGameState, app.gameStateHandler)
	router.GET(RouteAPIState, app.apiStateHandler)
	router.GET(RouteEvents, app.eventsHandler)
	router.GET(RouteHealth, app.healthzHandler)
	return router
}

func startServer(ctx context.Context, router *gin.Engine) {
	port := getEnvString("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		<-ctx.Done()
		logInfo("Shutdown signal received, shutting down server gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	logInfo("Server starting on http://localhost:%s", port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logFatal("Server failed to start: %v", err)
	}
	<-idleConnsClosed
	logInfo("Server shutdown complete")
}

// applyCacheHeaders lets static assets be cached in production; every other
// response is marked no-store.
func applyCacheHeaders(c *gin.Context, production bool, staticAge time.Duration) {
	if production && strings.HasPrefix(c.Request.URL.Path, "/static/") {
		cachecontrol.New(cachecontrol.Config{
			Public: true,
			MaxAge: cachecontrol.Duration(staticAge),
		})(c)
		c.Header("Vary", "Accept-Encoding")
		return
	}
	cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	})(c)
}
