package filter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferenceFilter(t *testing.T) {
	sections := map[string]bool{
		"tone-and-voice":     true,
		"handling-user-data": true,
	}

	tests := []struct {
		name     string
		chunks   []string
		expected string
	}{
		{
			name:     "known section",
			chunks:   []string{"see {Tone|tone-and-voice} for details", ""},
			expected: "see [Tone](/guide#tone-and-voice) for details",
		},
		{
			name:     "reference split across chunks",
			chunks:   []string{"see {Tone", "|tone-and-", "voice} for details", ""},
			expected: "see [Tone](/guide#tone-and-voice) for details",
		},
		{
			name:     "unknown section keeps label",
			chunks:   []string{"see {Deploys|deploy-process}", ""},
			expected: "see Deploys",
		},
		{
			name:     "reference without separator is dropped",
			chunks:   []string{"see {tone-and-voice}", ""},
			expected: "see ",
		},
		{
			name:     "plain text passes through",
			chunks:   []string{"nothing to rewrite here", ""},
			expected: "nothing to rewrite here",
		},
		{
			name:     "unclosed brace flushes at end of stream",
			chunks:   []string{"dangling {Tone|tone", ""},
			expected: "dangling {Tone|tone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rf := &ReferenceFilter{Sections: sections}
			var out strings.Builder
			for _, chunk := range tt.chunks {
				out.WriteString(rf.ProcessChunk(context.Background(), chunk))
			}
			assert.Equal(t, tt.expected, out.String())
		})
	}
}
