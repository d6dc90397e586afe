package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the timestamp format used in the store.
const TimestampLayout = "2006-01-02 15:04:05"

// Mastery bounds. Grader output outside the range is clamped.
const (
	MinMastery = 0
	MaxMastery = 10
)

// DefaultTopic is recorded when the grader returns no topic.
const DefaultTopic = "Unknown"

// Header is the canonical header row of the progress store.
var Header = []string{"timestamp", "topic", "mastery", "notes", "full_ai_response", "project_name"}

// Record is one graded interaction.
type Record struct {
	Timestamp    time.Time
	Topic        string
	Mastery      int
	Notes        string
	FullResponse string
	Project      string
}

// row renders the record in header order.
func (r Record) row() []string {
	return []string{
		r.Timestamp.Format(TimestampLayout),
		r.Topic,
		strconv.Itoa(r.Mastery),
		r.Notes,
		r.FullResponse,
		r.Project,
	}
}

// Assessment is the grader's classification of one turn.
type Assessment struct {
	Topic   string `json:"topic"`
	Mastery int    `json:"mastery"`
	Notes   string `json:"notes"`
}

// ClampMastery bounds a mastery score to [MinMastery, MaxMastery].
func ClampMastery(m int) int {
	if m < MinMastery {
		return MinMastery
	}
	if m > MaxMastery {
		return MaxMastery
	}
	return m
}

// ErrEmptyAssessment is returned when the grader produced no JSON object.
var ErrEmptyAssessment = errors.New("empty assessment")

// ParseAssessment decodes grader output into an Assessment.
// Missing fields take their defaults (topic "Unknown", mastery 0, empty notes).
// Mastery may arrive as an integer, a float or a numeric string; anything
// else counts as 0, and the result is clamped to the valid range.
func ParseAssessment(data []byte) (Assessment, error) {
	data = stripFences(data)
	if len(data) == 0 {
		return Assessment{}, ErrEmptyAssessment
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Assessment{}, fmt.Errorf("failed to parse assessment: %w", err)
	}

	// Some models wrap the object in a single-element array.
	if list, ok := raw.([]any); ok {
		if len(list) == 0 {
			return Assessment{}, ErrEmptyAssessment
		}
		raw = list[0]
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return Assessment{}, fmt.Errorf("assessment is %T, want object", raw)
	}

	a := Assessment{Topic: DefaultTopic}
	if s, ok := obj["topic"].(string); ok && strings.TrimSpace(s) != "" {
		a.Topic = strings.TrimSpace(s)
	}
	if s, ok := obj["notes"].(string); ok {
		a.Notes = s
	}
	a.Mastery = masteryValue(obj["mastery"])
	return a, nil
}

// masteryValue reads a numeric or numeric-string mastery and clamps it in
// float space so that huge values cannot overflow int.
func masteryValue(v any) int {
	var f float64
	switch m := v.(type) {
	case float64:
		f = m
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
		if err != nil {
			return MinMastery
		}
		f = parsed
	default:
		return MinMastery
	}
	if math.IsNaN(f) {
		return MinMastery
	}
	f = math.Max(MinMastery, math.Min(MaxMastery, f))
	return int(math.Round(f))
}

// stripFences removes a surrounding ```json ... ``` block if present.
func stripFences(data []byte) []byte {
	data = bytes.TrimSpace(data)
	if !bytes.HasPrefix(data, []byte("```")) {
		return data
	}
	data = bytes.TrimPrefix(data, []byte("```"))
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[i+1:]
	} else {
		data = bytes.TrimPrefix(data, []byte("json"))
	}
	data = bytes.TrimSuffix(bytes.TrimSpace(data), []byte("```"))
	return bytes.TrimSpace(data)
}
