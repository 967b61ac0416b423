package types

// FaceEntry is one card face from the palette file.
type FaceEntry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type Palette struct {
	Faces []FaceEntry `json:"faces"`
}

// CardView is what the browser sees of a card. Face and Label are empty
// while the card is face down.
type CardView struct {
	ID      int    `json:"id"`
	Face    string `json:"face,omitempty"`
	Label   string `json:"label,omitempty"`
	FaceUp  bool   `json:"faceUp"`
	Matched bool   `json:"matched"`
}

// RoundView is the rendered state of a round.
type RoundView struct {
	RoundID       string     `json:"roundId"`
	Cards         []CardView `json:"cards"`
	MoveCount     int        `json:"moves"`
	Score         int        `json:"score"`
	TimeRemaining *int       `json:"timeLeft,omitempty"`
	Elapsed       int        `json:"elapsed"`
	Clock         string     `json:"clock"`
	Mode          string     `json:"gameMode"`
	Phase         string     `json:"phase"`
	Outcome       string     `json:"outcome"`
	Over          bool       `json:"isGameOver"`
	Locked        bool       `json:"locked"`
	Matched       int        `json:"matched"`
	Total         int        `json:"total"`
	Message       string     `json:"message,omitempty"`
}
