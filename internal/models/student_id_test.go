package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStudentID(t *testing.T) {
	tests := []struct {
		raw     string
		text    string
		numeric bool
	}{
		{raw: "S001", text: "S001", numeric: false},
		{raw: " 15 ", text: "15", numeric: true},
		{raw: "2.5", text: "2.5", numeric: true},
		{raw: "007", text: "007", numeric: false},
		{raw: "NaN", text: "NaN", numeric: false},
	}
	for _, tc := range tests {
		id := ParseStudentID(tc.raw)
		assert.Equal(t, tc.text, id.String(), tc.raw)
		assert.Equal(t, tc.numeric, id.IsNumeric(), tc.raw)
	}
}

func TestStudentIDJSONKeepsKind(t *testing.T) {
	var ids []StudentID
	require.NoError(t, json.Unmarshal([]byte(`["S1", 3, 4.75]`), &ids))
	require.Len(t, ids, 3)
	assert.False(t, ids[0].IsNumeric())
	assert.True(t, ids[1].IsNumeric())

	out, err := json.Marshal(ids)
	require.NoError(t, err)
	assert.JSONEq(t, `["S1", 3, 4.75]`, string(out))
}

func TestStudentIDRejectsOtherKinds(t *testing.T) {
	for _, raw := range []string{`true`, `{"a":1}`, `[1]`} {
		var id StudentID
		assert.Error(t, json.Unmarshal([]byte(raw), &id), raw)
	}
}

func TestStudentIDEqual(t *testing.T) {
	var decoded StudentID
	require.NoError(t, json.Unmarshal([]byte(`7.0`), &decoded))

	assert.True(t, NewNumericID(7).Equal(decoded))
	assert.False(t, NewStringID("7").Equal(NewNumericID(7)))
	assert.True(t, NewStringID("S1").Equal(ParseStudentID("S1")))
}

func TestStudentIDMatchesAcrossKinds(t *testing.T) {
	assert.True(t, NewStringID("7").Matches(NewNumericID(7)))
	assert.True(t, NewNumericID(7).Matches(ParseStudentID("7.0")))
	assert.True(t, NewStringID("7").Matches(ParseStudentID("7")))
	assert.False(t, NewStringID("007").Matches(NewNumericID(7)))
	assert.False(t, NewStringID("S7").Matches(NewNumericID(7)))
	assert.False(t, NewStringID("8").Matches(NewNumericID(7)))
}

func TestNewNumericIDRejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		id := NewNumericID(v)
		assert.False(t, id.IsNumeric(), id.String())

		out, err := json.Marshal(id)
		require.NoError(t, err)
		assert.True(t, json.Valid(out), string(out))
	}
}
