package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssessment(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Assessment
	}{
		{
			name: "well formed",
			in:   `{"topic": "Bayes", "mastery": 7, "notes": "solid"}`,
			want: Assessment{Topic: "Bayes", Mastery: 7, Notes: "solid"},
		},
		{
			name: "missing fields take defaults",
			in:   `{}`,
			want: Assessment{Topic: DefaultTopic},
		},
		{
			name: "float mastery rounds",
			in:   `{"topic": "t", "mastery": 6.6}`,
			want: Assessment{Topic: "t", Mastery: 7},
		},
		{
			name: "string mastery",
			in:   `{"topic": "t", "mastery": " 4 "}`,
			want: Assessment{Topic: "t", Mastery: 4},
		},
		{
			name: "out of range clamps high",
			in:   `{"topic": "t", "mastery": 99}`,
			want: Assessment{Topic: "t", Mastery: 10},
		},
		{
			name: "negative clamps low",
			in:   `{"topic": "t", "mastery": -2}`,
			want: Assessment{Topic: "t", Mastery: 0},
		},
		{
			name: "huge float clamps high",
			in:   `{"topic": "t", "mastery": 1e30}`,
			want: Assessment{Topic: "t", Mastery: 10},
		},
		{
			name: "huge numeric string clamps high",
			in:   `{"topic": "t", "mastery": "99999999999999999999"}`,
			want: Assessment{Topic: "t", Mastery: 10},
		},
		{
			name: "huge negative clamps low",
			in:   `{"topic": "t", "mastery": -1e30}`,
			want: Assessment{Topic: "t", Mastery: 0},
		},
		{
			name: "non numeric mastery is zero",
			in:   `{"topic": "t", "mastery": "great"}`,
			want: Assessment{Topic: "t", Mastery: 0},
		},
		{
			name: "blank topic falls back",
			in:   `{"topic": "  ", "mastery": 3}`,
			want: Assessment{Topic: DefaultTopic, Mastery: 3},
		},
		{
			name: "fenced json",
			in:   "```json\n{\"topic\": \"Regression\", \"mastery\": 5, \"notes\": \"ok\"}\n```",
			want: Assessment{Topic: "Regression", Mastery: 5, Notes: "ok"},
		},
		{
			name: "single element array",
			in:   `[{"topic": "Priors", "mastery": 2}]`,
			want: Assessment{Topic: "Priors", Mastery: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAssessment([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAssessment_Errors(t *testing.T) {
	for _, in := range []string{"", "   ", "not json", `"just a string"`, `[]`, `{"topic": `} {
		_, err := ParseAssessment([]byte(in))
		assert.Error(t, err, "input %q", in)
	}

	_, err := ParseAssessment(nil)
	assert.ErrorIs(t, err, ErrEmptyAssessment)
}

func TestClampMastery(t *testing.T) {
	assert.Equal(t, 0, ClampMastery(-1))
	assert.Equal(t, 5, ClampMastery(5))
	assert.Equal(t, 10, ClampMastery(11))
}
