package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// TestModerator_Censor
// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dictionary := []string{"viper", "weasel", "toadstool"}
	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The viper is here",
			expected: "The ***** is here",
			words:    []string{"viper"},
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "viper viper viper",
			expected: "***** ***** *****",
			words:    []string{"viper", "viper", "viper"},
		},
		{
			name: "Leet speak and internal punctuation",
			// V (index 8) . 1 . p . 3 . r (index 16) -> 9 characters
			input:    "Look at V.1.p.3.r !",
			expected: "Look at ********* !",
			words:    []string{"viper"},
		},
		{
			name:     "Uppercase and extreme noise",
			input:    "W-E-A-S-E-L hides a V.I.P.E.R",
			expected: "*********** hides a *********",
			words:    []string{"weasel", "viper"},
		},
		{
			name:     "Accents and special characters (UTF-8)",
			input:    "Un été avec un viper",
			expected: "Un été avec un *****",
			words:    []string{"viper"},
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "I fear toadstool!",
			expected: "I fear *********!",
			words:    []string{"toadstool"},
		},
		{
			name:     "Nothing to censor",
			input:    "Chatline is amazing",
			expected: "Chatline is amazing",
			words:    nil,
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content, "test=%s,", tt.name)
			req.Equal(tt.words, words, "expected=%s,words=%s", tt.expected, words)
		})
	}
}

func TestModerator_CornerCases(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given real noise and not Leet Speak associated
	dictionary := []string{"...", ",,,", "", "viper"}

	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	// Then the sentence is censored
	input := "The viper is safe"
	expected := "The ***** is safe"
	content, words := mod.Censor(input)
	req.Equal(expected, content)
	req.Equal([]string{"viper"}, words)

	// Then real noise is uncensored
	input = "Hello ..."
	expected = "Hello ..."
	content, words = mod.Censor(input)
	req.Equal(expected, content)
	req.Nil(words)
}

func TestModerator_EmptyDictionary(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given a dictionary with nothing usable
	mod, err := NewModerator([]string{"", "  ", "..."}, replacementChar, log)
	req.NoError(err)

	// Then Censor is a passthrough
	content, words := mod.Censor("anything goes")
	req.Equal("anything goes", content)
	req.Nil(words)
}
