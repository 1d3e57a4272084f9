package matchmaking

import "errors"

const (
	MessageMatched       = "MATCHED"
	MessageWaiting       = "Waiting for opponent"
	MessageFailed        = "Failed to create game"
	MessageMissingPlayer = "Missing playerId"
	MessageClosed        = "Matchmaker closed"
)

// Outcome labels, used for metrics and logs
const (
	OutcomeMatched = "matched"
	OutcomeWaiting = "waiting"
	OutcomeFailed  = "failed"
	OutcomeInvalid = "invalid"
)

// Response is the result of a FindMatch call. It is always one of Matched, Waiting, Failed or InvalidRequest.
type Response interface {
	Message() string
	Outcome() string

	isResponse()
}

// Matched is returned to a player once a game has been created for them
type Matched struct {
	GameID GameID
	White  PlayerID
	Black  PlayerID
}

func (Matched) Message() string { return MessageMatched }
func (Matched) Outcome() string { return OutcomeMatched }
func (Matched) isResponse() {}

// Waiting means the player has been queued and should call again
type Waiting struct {
	Queue QueueKey
}

func (Waiting) Message() string { return MessageWaiting }
func (Waiting) Outcome() string { return OutcomeWaiting }
func (Waiting) isResponse() {}

// Failed means the game service could not create a game. Both players were put back in the queue before returning.
// After Close, Err is ErrClosed and nothing was queued.
type Failed struct {
	Err error
}

func (f Failed) Message() string {
	if errors.Is(f.Err, ErrClosed) {
		return MessageClosed
	}
	return MessageFailed
}
func (Failed) Outcome() string { return OutcomeFailed }
func (Failed) isResponse() {}

// InvalidRequest is returned without any state change when the request cannot be served
type InvalidRequest struct {
	Reason string
}

func (r InvalidRequest) Message() string { return r.Reason }
func (InvalidRequest) Outcome() string { return OutcomeInvalid }
func (InvalidRequest) isResponse() {}
