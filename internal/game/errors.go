package game

// Error is a game rule or validation failure carrying the wire error
// code reported to clients.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Sentinel errors for every failure the engine can report. RuleViolation
// errors (ErrInvalidMove) are returned alongside state mutation; the
// rest leave the session untouched.
var (
	ErrNotYourTurn        = &Error{Code: "NOT_YOUR_TURN", Message: "it is not your turn"}
	ErrInvalidCardIndex   = &Error{Code: "INVALID_CARD_INDEX", Message: "card index is out of range"}
	ErrInvalidMove        = &Error{Code: "INVALID_MOVE", Message: "card matches neither suit nor rank of the top card"}
	ErrDrawPileEmpty      = &Error{Code: "DRAW_PILE_EMPTY", Message: "draw pile is empty"}
	ErrNameTaken          = &Error{Code: "NAME_TAKEN", Message: "player name is already taken"}
	ErrInvalidPassword    = &Error{Code: "INVALID_PASSWORD", Message: "incorrect game password"}
	ErrGameAlreadyStarted = &Error{Code: "GAME_ALREADY_STARTED", Message: "the game has already started"}
	ErrGameNotStarted     = &Error{Code: "GAME_NOT_STARTED", Message: "the game has not started"}
	ErrGameNotFound       = &Error{Code: "GAME_NOT_FOUND", Message: "no such game"}
)
