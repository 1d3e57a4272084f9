package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// SoftwareName is the name of this software
const SoftwareName = "chess-matchmaker"

// SoftwareVersion is the version of this software
const SoftwareVersion = "v1.0.0"

// APIVersion is the version of the REST API served by the control server
const APIVersion uint = 1

// FindPath is the REST route used to ask for a match
const FindPath = "/api/matchmaking/find"

// EventsPath is the websocket route for match notifications, followed by the player id
const EventsPath = "/api/matchmaking/ws/"

// InfoResponse is the JSON response to the /info REST method
type InfoResponse struct {
	Software    string         `json:"software"`
	Version     string         `json:"version"`
	API         uint           `json:"apiVersion"`
	Queues      map[string]int `json:"queues"`
	LiveMatches int            `json:"liveMatches"`
}

// FindRequest is the JSON body of the find REST method. A missing playerId is reported back, not rejected.
// playerId may be sent as a JSON integer or as a string holding one.
type FindRequest struct {
	PlayerID    *int64 `json:"playerId"`
	Mode        string `json:"mode,omitempty"`
	TimeControl string `json:"timeControl,omitempty"`
}

func (r *FindRequest) UnmarshalJSON(data []byte) error {
	type plain FindRequest
	body := struct {
		PlayerID json.RawMessage `json:"playerId"`
		*plain
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}

	r.PlayerID = nil
	raw := bytes.TrimSpace(body.PlayerID)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return err
		}
	}
	player, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return fmt.Errorf("playerId %s is not an integer", raw)
	}
	r.PlayerID = &player
	return nil
}

// FindResponse is the JSON response to the find REST method. Which fields are set depends on Message:
// "MATCHED" carries the game and both players, "Waiting for opponent" carries the queue. "Failed to create game",
// "Missing playerId", "Invalid request body" and "Matchmaker closed" (sent while shutting down) carry nothing else.
type FindResponse struct {
	Message       string `json:"message"`
	GameID        *int64 `json:"gameId,omitempty"`
	WhitePlayerID *int64 `json:"whitePlayerId,omitempty"`
	BlackPlayerID *int64 `json:"blackPlayerId,omitempty"`
	Queue         string `json:"queue,omitempty"`
}

// Matched reports whether the response carries a game
func (r FindResponse) Matched() bool {
	return r.Message == "MATCHED" && r.GameID != nil
}

// MatchEvent is pushed over the notifications websocket when a player is placed into a game
type MatchEvent struct {
	Type          string `json:"type"`
	GameID        int64  `json:"gameId"`
	WhitePlayerID int64  `json:"whitePlayerId"`
	BlackPlayerID int64  `json:"blackPlayerId"`
}

// MatchEventType is the Type of every MatchEvent
const MatchEventType = "MATCHED"
