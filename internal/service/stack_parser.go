package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/errwatch/errwatch-backend/internal/domain"
)

// Frame line shapes tolerated by the parser:
//
//	at handleRequest (src/server.js:42:13)
//	at src/server.js:42:13
//	at <anonymous>
var (
	frameWithFuncRe = regexp.MustCompile(`^at\s+(.+?)\s+\((.+?):(\d+):(\d+)\)$`)
	frameBareRe     = regexp.MustCompile(`^at\s+(.+?):(\d+):(\d+)$`)
	frameFuncOnlyRe = regexp.MustCompile(`^at\s+(.+)$`)
)

// Path segments that mark a frame as vendored dependency code
var dependencyMarkers = []string{"node_modules", "/vendor/", "site-packages"}

// StackParser turns raw stack trace text into ordered frames
type StackParser struct {
	maxDepth int
}

// NewStackParser creates a parser with the given frame depth cap
func NewStackParser(maxDepth int) *StackParser {
	if maxDepth <= 0 {
		maxDepth = 50
	}
	return &StackParser{maxDepth: maxDepth}
}

// Parse extracts frames from raw stack text. The first line (the error
// message itself) is skipped; unparseable lines are skipped, never fatal.
func (p *StackParser) Parse(raw string) []domain.StackFrame {
	if raw == "" {
		return nil
	}

	lines := strings.Split(raw, "\n")
	frames := make([]domain.StackFrame, 0, min(len(lines), p.maxDepth))

	for i := 1; i < len(lines) && len(frames) < p.maxDepth; i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "at ") {
			continue
		}
		if frame, ok := p.parseFrame(line); ok {
			frames = append(frames, frame)
		}
	}

	return frames
}

func (p *StackParser) parseFrame(line string) (domain.StackFrame, bool) {
	if m := frameWithFuncRe.FindStringSubmatch(line); m != nil {
		return domain.StackFrame{
			Function: m[1],
			Filename: m[2],
			Line:     atoi(m[3]),
			Column:   atoi(m[4]),
			InApp:    isInApp(m[2]),
		}, true
	}

	if m := frameBareRe.FindStringSubmatch(line); m != nil {
		return domain.StackFrame{
			Function: "<anonymous>",
			Filename: m[1],
			Line:     atoi(m[2]),
			Column:   atoi(m[3]),
			InApp:    isInApp(m[1]),
		}, true
	}

	if m := frameFuncOnlyRe.FindStringSubmatch(line); m != nil {
		return domain.StackFrame{
			Function: m[1],
			InApp:    false,
		}, true
	}

	return domain.StackFrame{}, false
}

// isInApp reports whether a path belongs to application code rather than
// a vendored dependency
func isInApp(filename string) bool {
	if filename == "" {
		return false
	}
	for _, marker := range dependencyMarkers {
		if strings.Contains(filename, marker) {
			return false
		}
	}
	return true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
