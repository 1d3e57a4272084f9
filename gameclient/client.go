// Package gameclient talks to the game service that durably creates games for matched players.
package gameclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alejzeis/chess-matchmaker/matchmaking"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// DefaultCreatePath is the game service route that creates a game
const DefaultCreatePath = "/api/games/create"

// 2^63, the first float64 outside the int64 range
const maxGameIDFloat = float64(1 << 63)

var (
	// ErrUnexpectedStatus is returned when the game service answers with a non-2xx status
	ErrUnexpectedStatus = errors.New("unexpected status from game service")
	// ErrNoGameID is returned when the payload carries no usable game identifier
	ErrNoGameID = errors.New("game service response has no usable game id")
)

// Client creates games over HTTP. It satisfies matchmaking.GameCreator.
type Client struct {
	rest       *resty.Client
	createPath string
}

// New creates a Client for the game service at baseURL. A zero timeout leaves the request unbounded.
func New(baseURL, createPath string, timeout time.Duration) *Client {
	if createPath == "" {
		createPath = DefaultCreatePath
	}

	rest := resty.New().SetHostURL(baseURL)
	if timeout > 0 {
		rest.SetTimeout(timeout)
	}

	return &Client{
		rest:       rest,
		createPath: createPath,
	}
}

// CreateGame asks the game service for a new game with the given sides
func (c *Client) CreateGame(ctx context.Context, white, black matchmaking.PlayerID) (matchmaking.GameID, error) {
	response, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"whitePlayerId": strconv.FormatInt(int64(white), 10),
			"blackPlayerId": strconv.FormatInt(int64(black), 10),
		}).
		Post(c.createPath)
	if err != nil {
		return 0, fmt.Errorf("create game: %w", err)
	}

	if !response.IsSuccess() {
		log.WithFields(log.Fields{
			"path":   c.createPath,
			"status": response.StatusCode(),
			"body":   response.String(),
		}).Debug("Game service rejected create request")
		return 0, fmt.Errorf("%w: %d", ErrUnexpectedStatus, response.StatusCode())
	}

	return ParseGameID(response.Body())
}

// ParseGameID extracts the game identifier from a game service payload. The "gameId" field wins when it is present
// and not null, otherwise "id" is used. Either a JSON number (its integral part) or a decimal string is accepted.
func ParseGameID(body []byte) (matchmaking.GameID, error) {
	var payload map[string]interface{}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoGameID, err)
	}

	raw, ok := payload["gameId"]
	if !ok || raw == nil {
		raw = payload["id"]
	}

	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return matchmaking.GameID(n), nil
		}
		if f, err := v.Float64(); err == nil && f > -maxGameIDFloat && f < maxGameIDFloat {
			return matchmaking.GameID(int64(f)), nil
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return matchmaking.GameID(n), nil
		}
	}

	return 0, ErrNoGameID
}
