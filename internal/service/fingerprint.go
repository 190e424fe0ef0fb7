package service

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/errwatch/errwatch-backend/internal/domain"
)

// fingerprintFrameCount is how many leading frames participate in grouping
const fingerprintFrameCount = 5

var digitRunRe = regexp.MustCompile(`\d+`)

// Fingerprint derives the stable grouping key for an event: error type,
// digit-normalized message, and the top frames' function:file:line. Events
// differing only in embedded numbers ("timeout after 30000ms" vs "500ms")
// collapse to one group. Not a security hash, only a grouping key.
func Fingerprint(event *domain.ErrorEvent) string {
	normalized := digitRunRe.ReplaceAllString(event.Message, "N")

	frames := event.ParsedFrames
	if len(frames) > fingerprintFrameCount {
		frames = frames[:fingerprintFrameCount]
	}
	parts := make([]string, 0, len(frames))
	for _, f := range frames {
		parts = append(parts, fmt.Sprintf("%s:%s:%d", f.Function, f.Filename, f.Line))
	}

	components := strings.Join([]string{
		event.Type,
		normalized,
		strings.Join(parts, "|"),
	}, "::")

	sum := sha1.Sum([]byte(components))
	return hex.EncodeToString(sum[:])
}
