package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRequest_UnmarshalPlayerID(t *testing.T) {
	valid := []struct {
		body     string
		expected *int64
	}{
		{`{"playerId": 5}`, int64Ptr(5)},
		{`{"playerId": "5"}`, int64Ptr(5)},
		{`{"playerId": "-12"}`, int64Ptr(-12)},
		{`{"playerId": null}`, nil},
		{`{}`, nil},
	}
	for _, c := range valid {
		var req FindRequest
		require.NoError(t, json.Unmarshal([]byte(c.body), &req), "Body %s should decode", c.body)
		assert.Equal(t, c.expected, req.PlayerID, "Body %s", c.body)
	}

	for _, body := range []string{`{"playerId": "five"}`, `{"playerId": 5.5}`, `{"playerId": true}`, `{"playerId": ""}`} {
		var req FindRequest
		assert.Error(t, json.Unmarshal([]byte(body), &req), "Body %s must be rejected", body)
	}
}

func TestFindRequest_UnmarshalKeepsOtherFields(t *testing.T) {
	var req FindRequest
	require.NoError(t, json.Unmarshal([]byte(`{"playerId": "7", "mode": "blitz", "timeControl": "5+0"}`), &req))

	assert.Equal(t, FindRequest{PlayerID: int64Ptr(7), Mode: "blitz", TimeControl: "5+0"}, req)

	// What the client sends must come back unchanged
	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"playerId": 7, "mode": "blitz", "timeControl": "5+0"}`, string(data))
}

func int64Ptr(v int64) *int64 {
	return &v
}
