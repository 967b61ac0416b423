package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// getOrCreateSession retrieves the session ID from the cookie or creates a new one.
func (app *App) getOrCreateSession(c *gin.Context) string {
	sessionID, err := c.Cookie(SessionCookieName)
	if err != nil || len(sessionID) < 10 {
		sessionID = uuid.NewString()
		app.setSessionCookie(c, sessionID)
		logInfo("Created new session: %s", sessionID)
	}
	return sessionID
}

func (app *App) setSessionCookie(c *gin.Context, sessionID string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookieName, sessionID, int(app.CookieMaxAge.Seconds()), "/", "", app.IsProduction, true)
}

// getSession returns the session and its round, starting one with the server
// defaults if the session has none.
func (app *App) getSession(ctx context.Context, sessionID string) (*Session, error) {
	app.SessionMutex.Lock()
	sess, exists := app.Sessions[sessionID]
	if exists {
		sess.LastAccessTime = time.Now()
	}
	app.SessionMutex.Unlock()
	if exists {
		return sess, nil
	}

	logInfo("No round for session %s, dealing one", sessionID)
	if _, err := app.createNewRound(ctx, sessionID, app.Defaults); err != nil {
		return nil, err
	}
	app.SessionMutex.RLock()
	defer app.SessionMutex.RUnlock()
	return app.Sessions[sessionID], nil
}

// dropSession removes a session and tears its round down.
func (app *App) dropSession(sessionID string) {
	app.SessionMutex.Lock()
	sess, ok := app.Sessions[sessionID]
	delete(app.Sessions, sessionID)
	app.SessionMutex.Unlock()
	if ok {
		sess.Round.Close()
		logInfo("Cleared session data for: %s", sessionID)
	}
}

// sweepSessions closes and forgets rounds idle for longer than the session
// timeout. It returns how many were removed.
func (app *App) sweepSessions(now time.Time) int {
	cutoff := now.Add(-app.SessionTimeout)

	app.SessionMutex.Lock()
	var expired []*Session
	for id, sess := range app.Sessions {
		if sess.LastAccessTime.Before(cutoff) {
			expired = append(expired, sess)
			delete(app.Sessions, id)
		}
	}
	remaining := len(app.Sessions)
	app.SessionMutex.Unlock()

	// Rounds are closed outside SessionMutex: a round's listeners may be
	// running under the round lock and must never wait on the session map.
	for _, sess := range expired {
		sess.Round.Close()
	}
	if len(expired) > 0 {
		logInfo("Session sweep removed %d idle rounds, %d active", len(expired), remaining)
	}
	return len(expired)
}

// runSessionSweeper sweeps on every interval until ctx is cancelled.
func (app *App) runSessionSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			app.sweepSessions(now)
		}
	}
}

// activeRounds reports how many sessions currently hold a round.
func (app *App) activeRounds() int {
	app.SessionMutex.RLock()
	defer app.SessionMutex.RUnlock()
	return len(app.Sessions)
}
