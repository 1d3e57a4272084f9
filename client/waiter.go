package client

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/alejzeis/chess-matchmaker/common"

	log "github.com/sirupsen/logrus"
)

// Server message for a request without a player, retrying cannot help
const messageMissingPlayer = "Missing playerId"

// ErrMissingPlayer is returned by waitForMatch when the server says the request had no player id
var ErrMissingPlayer = errors.New("server reports missing playerId")

type finder interface {
	find(ctx context.Context, req common.FindRequest) (common.FindResponse, error)
}

// waitForMatch calls find until the server answers MATCHED. Every other answer is retried after interval, transport
// errors after backoff. A hint (a pushed match event) triggers the next call immediately.
func waitForMatch(ctx context.Context, f finder, req common.FindRequest, interval, backoff time.Duration, hints <-chan common.MatchEvent) (common.FindResponse, error) {
	for {
		resp, err := f.find(ctx, req)

		wait := interval
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return common.FindResponse{}, ctx.Err()
			}
			log.WithError(err).Warn("Matchmaking request failed, backing off")
			wait = backoff
		case resp.Matched():
			return resp, nil
		case resp.Message == messageMissingPlayer:
			return resp, ErrMissingPlayer
		default:
			log.WithFields(log.Fields{
				"message": resp.Message,
				"queue":   resp.Queue,
			}).Debug("Not matched yet")
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return common.FindResponse{}, ctx.Err()
		case <-timer.C:
		case _, ok := <-hints:
			timer.Stop()
			if !ok {
				hints = nil
			}
		}
	}
}

// listenForMatches subscribes to the server's notification websocket for player. The returned channel receives
// events until ctx ends or the connection drops, and is then closed.
func listenForMatches(ctx context.Context, serverURL string, player int64) (<-chan common.MatchEvent, error) {
	address := websocketURL(serverURL) + common.EventsPath + strconv.FormatInt(player, 10)
	conn, err := common.DialEventConnection(address)
	if err != nil {
		return nil, err
	}

	events := make(chan common.MatchEvent, 1)
	go func() {
		<-ctx.Done()
		conn.CloseWithMessage("done waiting")
	}()
	go func() {
		defer close(events)
		for {
			event, err := conn.ReadEvent()
			if err != nil {
				return
			}
			select {
			case events <- event:
			default:
			}
		}
	}()

	return events, nil
}

func websocketURL(serverURL string) string {
	switch {
	case strings.HasPrefix(serverURL, "https://"):
		return "wss://" + strings.TrimPrefix(serverURL, "https://")
	case strings.HasPrefix(serverURL, "http://"):
		return "ws://" + strings.TrimPrefix(serverURL, "http://")
	}
	return serverURL
}
