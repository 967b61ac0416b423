package main

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"pawpair/internal/memory"
)

const eventBuffer = 16

type roundEvent struct {
	name string
	data any
}

// eventsHandler streams the session's round as Server-Sent Events: a
// "state" event after every change, then "won" or "lost", and "closed" once
// the round is replaced or swept.
func (app *App) eventsHandler(c *gin.Context) {
	sessionID := app.getOrCreateSession(c)
	sess, err := app.getSession(c.Request.Context(), sessionID)
	if err != nil {
		app.renderFailure(c, http.StatusInternalServerError, err)
		return
	}
	round := sess.Round

	// Listeners run under the round lock; drop events rather than block it
	// when the client falls behind. The next state event supersedes them.
	events := make(chan roundEvent, eventBuffer)
	send := func(ev roundEvent) {
		select {
		case events <- ev:
		default:
		}
	}
	cancel := round.Subscribe(memory.ListenerFuncs{
		OnState: func(s memory.RoundState) { send(roundEvent{"state", app.buildRoundView(s, "")}) },
		OnWin:   func() { send(roundEvent{"won", MessageWin}) },
		OnLoss:  func() { send(roundEvent{"lost", MessageGameOver}) },
	})
	defer cancel()

	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("state", app.buildRoundView(round.Snapshot(), ""))
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev := <-events:
			c.SSEvent(ev.name, ev.data)
			return true
		case <-round.Done():
			c.SSEvent("closed", round.ID())
			return false
		case <-ctx.Done():
			return false
		}
	})
	logInfo("Event stream for session %s closed", sessionID)
}
