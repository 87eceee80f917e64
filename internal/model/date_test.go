package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	d := NewDate(2024, time.January, 5)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-05"`, string(data))

	var decoded Date
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, d, decoded)

	assert.Error(t, json.Unmarshal([]byte(`"05/01/2024"`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`20240105`), &decoded))
}

func TestDate_Scan(t *testing.T) {
	want := NewDate(2024, time.March, 31)

	tests := []struct {
		name  string
		value interface{}
	}{
		{name: "time value", value: time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)},
		{name: "date string", value: "2024-03-31"},
		{name: "datetime string", value: "2024-03-31 00:00:00+00:00"},
		{name: "bytes", value: []byte("2024-03-31")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.value))
			assert.Equal(t, want, d)
		})
	}

	var d Date
	assert.Error(t, d.Scan(42))
}

func TestDate_AddDays(t *testing.T) {
	d := NewDate(2024, time.February, 28)

	assert.Equal(t, NewDate(2024, time.February, 29), d.AddDays(1))
	assert.Equal(t, NewDate(2024, time.March, 1), d.AddDays(2))
	assert.Equal(t, NewDate(2023, time.February, 28), d.AddDays(-365))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.After(d))
}

func TestOptional_UnmarshalJSON(t *testing.T) {
	type patch struct {
		Notes Optional[string] `json:"notes"`
		End   Optional[Date]   `json:"end_date"`
	}

	tests := []struct {
		name      string
		body      string
		notesSet  bool
		notesNull bool
		endSet    bool
	}{
		{name: "absent", body: `{}`},
		{name: "explicit null", body: `{"notes": null}`, notesSet: true, notesNull: true},
		{name: "value", body: `{"notes": "cramps", "end_date": "2024-01-07"}`, notesSet: true, endSet: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p patch
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			assert.Equal(t, tt.notesSet, p.Notes.Set)
			if tt.notesSet {
				assert.Equal(t, tt.notesNull, p.Notes.Value == nil)
			}
			assert.Equal(t, tt.endSet, p.End.Set)
			if tt.endSet {
				assert.Equal(t, NewDate(2024, time.January, 7), *p.End.Value)
			}
		})
	}
}

func TestFlowIntensity_Ordinal(t *testing.T) {
	assert.Equal(t, 0, FlowLight.Ordinal())
	assert.Equal(t, 1, FlowMedium.Ordinal())
	assert.Equal(t, 2, FlowHeavy.Ordinal())
	assert.True(t, FlowHeavy.Valid())
	assert.False(t, FlowIntensity("Spotting").Valid())
}
