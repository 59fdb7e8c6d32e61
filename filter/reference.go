package filter

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/firegate-io/firegate/log"
)

var (
	referenceRegex = regexp.MustCompile(`\{([^}]+)\}`)
)

// ReferenceFilter rewrites guide references of the form {Label|slug}
// into links to the rendered guide. References to unknown sections are
// reduced to their label, so the client never gets a dead anchor.
type ReferenceFilter struct {
	// Sections is the set of valid section slugs, from guide.SectionSlugs.
	Sections map[string]bool

	buffer    string
	buffering bool
}

func (rf *ReferenceFilter) ProcessChunk(ctx context.Context, chunk string) string {
	if chunk == "" { // empty chunk - end of stream
		rf.buffering = false
		ret := rf.buffer
		rf.buffer = ""
		return ret
	}
	if referenceRegex.MatchString(chunk) { // complete reference within the chunk
		rf.buffering = false
		ret := rf.buffer + chunk
		rf.buffer = ""
		return rf.convert(ctx, ret)
	}
	if strings.Contains(chunk, "{") {
		if rf.buffering { // second { while buffering, flush and start over
			ret := rf.buffer
			rf.buffer = chunk
			return ret
		}
		rf.buffering = true
		rf.buffer += chunk
		return ""
	}
	if strings.Contains(chunk, "}") && rf.buffering { // reference may be complete now
		ret := rf.buffer + chunk
		ret = rf.convert(ctx, ret)
		rf.buffering = false
		rf.buffer = ""
		return ret
	}
	if rf.buffering { // still inside a potential reference
		rf.buffer += chunk
		return ""
	}
	return chunk
}

func (rf *ReferenceFilter) convert(ctx context.Context, text string) string {
	return referenceRegex.ReplaceAllStringFunc(text, func(match string) string {
		logger := log.LoggerFromContext(ctx)
		content := match[1 : len(match)-1]

		parts := strings.Split(content, "|")
		if len(parts) != 2 {
			logger.Info("invalid guide reference", slog.String("match", match))
			return ""
		}

		label := parts[0]
		slug := strings.TrimSpace(strings.ToLower(parts[1]))
		if rf.Sections[slug] {
			return "[" + label + "](/guide#" + slug + ")"
		}

		logger.Info("guide section not found", slog.String("slug", slug))
		return label
	})
}
