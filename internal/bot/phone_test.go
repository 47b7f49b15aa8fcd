package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"08123456789", "628123456789"},
		{"628123456789", "628123456789"},
		{"8123456789", "628123456789"},
		{"+62 812-3456-789", "628123456789"},
		{"0817 1234 5678", "6281712345678"},
		{"abc", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeNumber(tt.input), "input %q", tt.input)
	}
}

func TestValidateTargetNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
		valid bool
	}{
		{"081712345678", "6281712345678", true},
		{"087812345678", "6287812345678", true},
		{"6281898765432", "6281898765432", true},
		{"0877123456", "62877123456", true},
		// Telkomsel prefix is rejected.
		{"08123456789", "628123456789", false},
		// Too short and too long.
		{"0817123", "62817123", false},
		{"0817123456789012", "62817123456789012", false},
	}

	for _, tt := range tests {
		got, valid := ValidateTargetNumber(tt.input)
		assert.Equal(t, tt.valid, valid, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}
