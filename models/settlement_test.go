package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanEntry_MarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		entry ScanEntry
		want  string
	}{
		{
			name:  "success keeps a zero count",
			entry: ScanEntry{EventID: 1, Result: SideA, Message: "0 wagers settled"},
			want:  `{"eventId":1,"result":"A","message":"0 wagers settled","settledCount":0}`,
		},
		{
			name:  "failure without settled wagers",
			entry: ScanEntry{EventID: 2, Error: "store unavailable"},
			want:  `{"eventId":2,"error":"store unavailable"}`,
		},
		{
			name:  "failure after partial settlement keeps the count",
			entry: ScanEntry{EventID: 3, Result: SideB, Settled: 2, Error: "failed to resolve wagers"},
			want:  `{"eventId":3,"result":"B","error":"failed to resolve wagers","settledCount":2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.entry)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestScanReport_MarshalsEntriesThroughPointer(t *testing.T) {
	report := &ScanReport{RunID: "run", Results: []ScanEntry{{EventID: 9, Error: "boom"}}}

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	entry := decoded["results"].([]any)[0].(map[string]any)
	assert.NotContains(t, entry, "settledCount")
	assert.Equal(t, 1, report.Failed())
}
