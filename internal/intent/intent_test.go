package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldApply(t *testing.T) {
	tests := []struct {
		name   string
		intent Intent
		want   bool
	}{
		{"simple code change", CodeSimple, true},
		{"code change with context", CodeContext, true},
		{"image plus code", CodeImage, true},
		{"search plus code", CodeSearch, true},
		{"chat reply", Respond, false},
		{"clarification request", Clarify, false},
		{"unknown intent", Intent("telemetry"), false},
		{"absent intent applies", Intent(""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldApply(tt.intent))
		})
	}
}

func TestIsClarify(t *testing.T) {
	assert.True(t, IsClarify(Clarify))
	assert.False(t, IsClarify(Respond))
	assert.False(t, IsClarify(Intent("")))
}
