package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alejzeis/chess-matchmaker/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedResult struct {
	resp common.FindResponse
	err  error
}

// scriptedFinder replays results in order, repeating the last one
type scriptedFinder struct {
	mutex   sync.Mutex
	results []scriptedResult
	calls   int
}

func (f *scriptedFinder) find(ctx context.Context, req common.FindRequest) (common.FindResponse, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	return f.results[i].resp, f.results[i].err
}

func (f *scriptedFinder) callCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.calls
}

func matchedResponse(gameID int64) common.FindResponse {
	white, black := int64(1), int64(2)
	return common.FindResponse{Message: "MATCHED", GameID: &gameID, WhitePlayerID: &white, BlackPlayerID: &black}
}

func player(id int64) *int64 {
	return &id
}

func TestParseFindCommand(t *testing.T) {
	req, err := parseFindCommand([]string{"7", "blitz", "5+0"})
	require.NoError(t, err)
	assert.Equal(t, common.FindRequest{PlayerID: player(7), Mode: "blitz", TimeControl: "5+0"}, req)

	req, err = parseFindCommand([]string{"7"})
	require.NoError(t, err)
	assert.Equal(t, common.FindRequest{PlayerID: player(7)}, req)

	_, err = parseFindCommand(nil)
	assert.Error(t, err)
	_, err = parseFindCommand([]string{"seven"})
	assert.Error(t, err)
	_, err = parseFindCommand([]string{"7", "a", "b", "c"})
	assert.Error(t, err)
}

func TestWebsocketURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8083", websocketURL("http://localhost:8083"))
	assert.Equal(t, "wss://chess.example.com", websocketURL("https://chess.example.com"))
	assert.Equal(t, "ws://already", websocketURL("ws://already"))
}

func TestWaitForMatch_PollsUntilMatched(t *testing.T) {
	f := &scriptedFinder{results: []scriptedResult{
		{err: errors.New("connection refused")},
		{resp: common.FindResponse{Message: "Waiting for opponent", Queue: "online:DEFAULT"}},
		{resp: common.FindResponse{Message: "Failed to create game"}},
		{resp: matchedResponse(5)},
	}}

	resp, err := waitForMatch(context.Background(), f, common.FindRequest{PlayerID: player(1)}, time.Millisecond, time.Millisecond, nil)

	require.NoError(t, err)
	assert.Equal(t, matchedResponse(5), resp)
	assert.Equal(t, 4, f.callCount(), "Errors, waiting and failures are all retried")
}

func TestWaitForMatch_MissingPlayerStops(t *testing.T) {
	f := &scriptedFinder{results: []scriptedResult{{resp: common.FindResponse{Message: "Missing playerId"}}}}

	_, err := waitForMatch(context.Background(), f, common.FindRequest{}, time.Millisecond, time.Millisecond, nil)

	assert.ErrorIs(t, err, ErrMissingPlayer)
	assert.Equal(t, 1, f.callCount())
}

func TestWaitForMatch_HintSkipsTheWait(t *testing.T) {
	f := &scriptedFinder{results: []scriptedResult{
		{resp: common.FindResponse{Message: "Waiting for opponent"}},
		{resp: matchedResponse(8)},
	}}
	hints := make(chan common.MatchEvent, 1)
	hints <- common.MatchEvent{Type: common.MatchEventType, GameID: 8}

	started := time.Now()
	resp, err := waitForMatch(context.Background(), f, common.FindRequest{PlayerID: player(1)}, time.Hour, time.Hour, hints)

	require.NoError(t, err)
	assert.Equal(t, matchedResponse(8), resp)
	assert.Less(t, int64(time.Since(started)), int64(time.Minute), "The hint must wake the loop before the poll interval")
}

func TestWaitForMatch_ClosedHintsFallBackToPolling(t *testing.T) {
	f := &scriptedFinder{results: []scriptedResult{
		{resp: common.FindResponse{Message: "Waiting for opponent"}},
		{resp: common.FindResponse{Message: "Waiting for opponent"}},
		{resp: matchedResponse(2)},
	}}
	hints := make(chan common.MatchEvent)
	close(hints)

	_, err := waitForMatch(context.Background(), f, common.FindRequest{PlayerID: player(1)}, time.Millisecond, time.Millisecond, hints)

	require.NoError(t, err)
	assert.Equal(t, 3, f.callCount())
}

func TestWaitForMatch_Cancelled(t *testing.T) {
	f := &scriptedFinder{results: []scriptedResult{{resp: common.FindResponse{Message: "Waiting for opponent"}}}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := waitForMatch(ctx, f, common.FindRequest{PlayerID: player(1)}, time.Hour, time.Hour, nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRestClient_Find(t *testing.T) {
	var got common.FindRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, common.FindPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message": "Waiting for opponent", "queue": "blitz:5+0"}`))
	}))
	defer server.Close()

	resp, err := createRestClient(server.URL).find(context.Background(), common.FindRequest{PlayerID: player(3), Mode: "blitz", TimeControl: "5+0"})

	require.NoError(t, err)
	assert.Equal(t, common.FindResponse{Message: "Waiting for opponent", Queue: "blitz:5+0"}, resp)
	assert.Equal(t, common.FindRequest{PlayerID: player(3), Mode: "blitz", TimeControl: "5+0"}, got)
}

func TestRestClient_FindRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := createRestClient(server.URL).find(context.Background(), common.FindRequest{PlayerID: player(3)})
	assert.Error(t, err)
}

func TestRestClient_Info(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"software": "chess-matchmaker", "version": "v1.0.0", "apiVersion": 1, "queues": {"online:DEFAULT": 2}, "liveMatches": 1}`))
	}))
	defer server.Close()

	info, err := createRestClient(server.URL).info(context.Background())

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"online:DEFAULT": 2}, info.Queues)
	assert.Equal(t, 1, info.LiveMatches)
}
