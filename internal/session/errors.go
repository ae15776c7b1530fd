package session

// Error is the wire-level protocol error. The code strings are part of the
// client contract; everything a handler can reject with maps onto one of
// these so clients can correlate failures to the request seq that caused
// them.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

var (
	ErrGameNotFound            = &Error{Code: "GAME_NOT_FOUND", Message: "no session with that join code"}
	ErrGameFull                = &Error{Code: "GAME_FULL", Message: "session is at capacity"}
	ErrGameAlreadyStarted      = &Error{Code: "GAME_ALREADY_STARTED", Message: "session already started"}
	ErrGameNotStarted          = &Error{Code: "GAME_NOT_STARTED", Message: "session is not in play"}
	ErrGameStateNotInitialized = &Error{Code: "GAME_STATE_NOT_INITIALIZED", Message: "authoritative state missing"}
	ErrNotDM                   = &Error{Code: "NOT_DM", Message: "requester is not the session owner"}
	ErrNotYourTurn             = &Error{Code: "NOT_YOUR_TURN", Message: "acting out of turn"}
	ErrPlayerNotInGame         = &Error{Code: "PLAYER_NOT_IN_GAME", Message: "no unit assigned to this user"}
	ErrCharacterNotFound       = &Error{Code: "CHARACTER_NOT_FOUND", Message: "character reference missing"}
	ErrInvalidUnit             = &Error{Code: "INVALID_UNIT", Message: "action references a unit you do not own"}
	ErrInvalidConfig           = &Error{Code: "INVALID_CONFIG", Message: "max players must be between 2 and 8"}
)

// InvalidAction wraps a simulator rejection, preserving its reason string.
func InvalidAction(reason string) *Error {
	return &Error{Code: "INVALID_ACTION", Message: reason}
}

// ExecutionError marks an unexpected simulator failure. The authoritative
// state is guaranteed untouched when one of these surfaces.
func ExecutionError(reason string) *Error {
	return &Error{Code: "EXECUTION_ERROR", Message: reason}
}
