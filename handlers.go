package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pawpair/internal/memory"
	"pawpair/internal/types"
)

const (
	pageTitle   = "Paw Pair Memory"
	pageTagline = "Match the adorable cats and dogs in this memory game. Challenge yourself in Time Attack mode!"
)

// homeHandler renders the main game page for the current session.
func (app *App) homeHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	sess, err := app.getSession(ctx, sessionID)
	if err != nil {
		app.renderFailure(c, http.StatusInternalServerError, err)
		return
	}

	view := app.buildRoundView(sess.Round.Snapshot(), "")
	c.HTML(http.StatusOK, "index.html", app.pageData(view, ""))
}

// newGameHandler deals a fresh round, optionally rotating the session ID.
func (app *App) newGameHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)

	var form newGameForm
	if err := c.ShouldBind(&form); err != nil {
		logWarn("Invalid new game form for session %s: %v", sessionID, err)
		app.renderFailure(c, http.StatusUnprocessableEntity, err)
		return
	}
	cfg, err := app.roundConfig(form)
	if err != nil {
		app.renderFailure(c, http.StatusUnprocessableEntity, err)
		return
	}

	if c.Query("reset") == "1" {
		app.dropSession(sessionID)
		sessionID = uuid.NewString()
		app.setSessionCookie(c, sessionID)
		logInfo("Created new session ID: %s", sessionID)
	}

	round, err := app.createNewRound(ctx, sessionID, cfg)
	if err != nil {
		app.renderFailure(c, http.StatusUnprocessableEntity, err)
		return
	}

	if isHTMX(c) {
		view := app.buildRoundView(round.Snapshot(), "")
		c.HTML(http.StatusOK, "game-content", gin.H{"game": view, "newGame": true})
		return
	}
	c.Redirect(http.StatusSeeOther, RouteHome)
}

// flipHandler forwards a flip intent to the session's round.
func (app *App) flipHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	sess, err := app.getSession(ctx, sessionID)
	if err != nil {
		app.renderFailure(c, http.StatusInternalServerError, err)
		return
	}
	round := sess.Round

	var form flipForm
	if err := c.ShouldBind(&form); err != nil {
		logWarn("Session %s sent a flip without a card: %v", sessionID, err)
		app.renderBoard(c, app.buildRoundView(round.Snapshot(), ""), ErrorMissingCard)
		return
	}

	before := round.Snapshot()
	if err := round.Flip(form.Card); err != nil {
		if errors.Is(err, memory.ErrInvalidCardReference) {
			logWarn("Session %s: %v", sessionID, err)
			app.renderBoard(c, app.buildRoundView(before, ""), ErrorUnknownCard)
			return
		}
		app.renderFailure(c, http.StatusInternalServerError, err)
		return
	}
	after := round.Snapshot()

	message := ""
	if after.Score > before.Score && !after.Over {
		message = MessageMatch
	}
	app.renderBoard(c, app.buildRoundView(after, message), "")
}

// gameStateHandler renders the current board as an HTML fragment.
func (app *App) gameStateHandler(c *gin.Context) {
	sess, err := app.getSession(c.Request.Context(), app.getOrCreateSession(c))
	if err != nil {
		app.renderFailure(c, http.StatusInternalServerError, err)
		return
	}
	c.HTML(http.StatusOK, "game-content", gin.H{"game": app.buildRoundView(sess.Round.Snapshot(), "")})
}

// apiStateHandler returns the current round as JSON.
func (app *App) apiStateHandler(c *gin.Context) {
	sess, err := app.getSession(c.Request.Context(), app.getOrCreateSession(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.buildRoundView(sess.Round.Snapshot(), ""))
}

// healthzHandler returns a JSON health check with server stats.
func (app *App) healthzHandler(c *gin.Context) {
	uptime := time.Since(app.StartTime)
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"env":           map[bool]string{true: "production", false: "development"}[app.IsProduction],
		"faces_loaded":  len(app.Palette),
		"active_rounds": app.activeRounds(),
		"uptime":        formatUptime(uptime),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

// renderBoard renders the board fragment for HTMX requests and the full
// page otherwise. A non-empty errMsg is also raised as an HX-Trigger event.
func (app *App) renderBoard(c *gin.Context, view types.RoundView, errMsg string) {
	if errMsg != "" {
		payload := map[string]string{"server_error": errMsg}
		if b, jerr := json.Marshal(payload); jerr == nil {
			c.Header("HX-Trigger", string(b))
		} else {
			logWarn("Failed to marshal HX-Trigger payload: %v", jerr)
		}
	}
	if isHTMX(c) {
		c.HTML(http.StatusOK, "game-content", gin.H{"game": view, "error": errMsg})
		return
	}
	c.HTML(http.StatusOK, "index.html", app.pageData(view, errMsg))
}

// renderFailure reports an error that left no board to show.
func (app *App) renderFailure(c *gin.Context, status int, err error) {
	msg := err.Error()
	if errors.Is(err, memory.ErrConfiguration) {
		msg = ErrorInvalidConfig + " " + err.Error()
	}
	if status >= http.StatusInternalServerError {
		app.Logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (app *App) pageData(view types.RoundView, errMsg string) gin.H {
	return gin.H{
		"title":    pageTitle,
		"message":  pageTagline,
		"game":     view,
		"error":    errMsg,
		"defaults": app.Defaults,
	}
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}
