package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StudentID is an opaque identifier supplied by the caller. It keeps the JSON kind
// (string or number) it was created with so documents round-trip unchanged.
type StudentID struct {
	text    string
	numeric bool
}

var errUnsupportedID = errors.New("student id must be a string or a number")

// NewStringID builds an identifier that serialises as a JSON string.
func NewStringID(v string) StudentID {
	return StudentID{text: v}
}

// NewNumericID builds an identifier that serialises as a JSON number. JSON has no
// encoding for NaN or infinities, so those fall back to a string ID.
func NewNumericID(v float64) StudentID {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NewStringID(strconv.FormatFloat(v, 'f', -1, 64))
	}
	return StudentID{text: strconv.FormatFloat(v, 'f', -1, 64), numeric: true}
}

// ParseStudentID turns free text into an identifier. Text that is a valid number
// becomes a numeric ID, anything else a string ID.
func ParseStudentID(raw string) StudentID {
	raw = strings.TrimSpace(raw)
	if f, err := strconv.ParseFloat(raw, 64); err == nil && isJSONNumber(raw) {
		return NewNumericID(f)
	}
	return NewStringID(raw)
}

// String returns the textual form of the identifier.
func (id StudentID) String() string {
	return id.text
}

// IsNumeric reports whether the identifier is encoded as a JSON number.
func (id StudentID) IsNumeric() bool {
	return id.numeric
}

// IsZero reports whether the identifier carries no value.
func (id StudentID) IsZero() bool {
	return id.text == "" && !id.numeric
}

// MarshalJSON implements json.Marshaler.
func (id StudentID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.text), nil
	}
	return json.Marshal(id.text)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *StudentID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errUnsupportedID
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode student id: %w", err)
		}
		*id = NewStringID(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode student id: %w", err)
		}
		*id = StudentID{text: n.String(), numeric: true}
		return nil
	default:
		return errUnsupportedID
	}
}

func isJSONNumber(raw string) bool {
	var n json.Number
	return json.Unmarshal([]byte(raw), &n) == nil
}

// Equal compares two identifiers. Numeric IDs compare by value so 7 and 7.0 match.
func (id StudentID) Equal(other StudentID) bool {
	if id.numeric != other.numeric {
		return false
	}
	if !id.numeric {
		return id.text == other.text
	}
	a, errA := strconv.ParseFloat(id.text, 64)
	b, errB := strconv.ParseFloat(other.text, 64)
	if errA != nil || errB != nil {
		return id.text == other.text
	}
	return a == b
}

// Matches is Equal relaxed across kinds: the string "7" matches the number 7. Text
// typed by a user cannot say which kind a stored ID was written with.
func (id StudentID) Matches(other StudentID) bool {
	if id.Equal(other) {
		return true
	}
	if id.numeric == other.numeric {
		return false
	}
	str, num := id, other
	if id.numeric {
		str, num = other, id
	}
	parsed := ParseStudentID(str.text)
	return parsed.numeric && parsed.Equal(num)
}
