package main

// Session configuration constants
const (
	SessionCookieName = "session_id"
)

// Route constants
const (
	RouteHome      = "/"
	RouteNewGame   = "/new-game"
	RouteFlip      = "/flip"
	RouteGameState = "/game-state"
	RouteAPIState  = "/api/state"
	RouteEvents    = "/events"
	RouteHealth    = "/healthz"
)

// Error message constants
const (
	ErrorUnknownCard   = "That card is not on the board."
	ErrorMissingCard   = "No card was selected."
	ErrorInvalidConfig = "Those game settings cannot be played."
)

// Feedback message constants
const (
	MessageMatch    = "Match found!"
	MessageGameOver = "Game Over!"
	MessageWin      = "You matched every pair!"
)

// Context key constants
const (
	requestIDKey contextKey = "request_id"
)

type contextKey string
