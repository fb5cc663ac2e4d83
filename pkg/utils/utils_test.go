package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a@example.com", "a@example.com"},
		{"ab@example.com", "a*b@example.com"},
		{"abc@example.com", "a***c@example.com"},
		{"john.doe@example.com", "j***e@example.com"},
		{"not-an-email", "not-an-email"},
		{"@example.com", "@example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskEmail(tt.input))
		})
	}
}
