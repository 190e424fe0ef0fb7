package service

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/errwatch/errwatch-backend/internal/domain"
)

var (
	endpointIDRe    = regexp.MustCompile(`/\d+`)
	endpointQueryRe = regexp.MustCompile(`\?.*`)
)

// buildTitle derives the display title for a group from its first event:
// type, clamped message, and the first in-app frame location.
func buildTitle(event *domain.ErrorEvent) string {
	location := "Unknown"
	for _, f := range event.ParsedFrames {
		if f.InApp {
			location = fmt.Sprintf("%s (%s:%d)", f.Function, filepath.Base(f.Filename), f.Line)
			break
		}
	}

	msg := event.Message
	if len(msg) > 100 {
		msg = msg[:100]
	}

	return fmt.Sprintf("%s: %s in %s", event.Type, msg, location)
}

// extractTags derives searchable tags from the error and its context
func extractTags(code string, ctx domain.ErrorContext) []string {
	var tags []string
	if code != "" {
		tags = append(tags, "code:"+code)
	}
	if ctx.Component != "" {
		tags = append(tags, "component:"+ctx.Component)
	}
	if ctx.Operation != "" {
		tags = append(tags, "operation:"+ctx.Operation)
	}
	if ctx.URL != "" {
		tags = append(tags, "endpoint:"+normalizeEndpoint(ctx.URL))
	}
	return tags
}

// normalizeEndpoint collapses numeric path segments and strips query strings
// so tags stay low-cardinality
func normalizeEndpoint(url string) string {
	url = endpointIDRe.ReplaceAllString(url, "/:id")
	return endpointQueryRe.ReplaceAllString(url, "")
}

// extractMetadata snapshots client and runtime facts at capture time
func extractMetadata(ctx domain.ErrorContext) domain.ErrorMetadata {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return domain.ErrorMetadata{
		Browser:        parseBrowser(ctx.UserAgent),
		OS:             parseOS(ctx.UserAgent),
		HeapAllocBytes: mem.HeapAlloc,
		NumGoroutine:   runtime.NumGoroutine(),
		GoVersion:      runtime.Version(),
	}
}

func parseBrowser(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	switch {
	case strings.Contains(userAgent, "Edge"):
		return "Edge"
	case strings.Contains(userAgent, "Chrome"):
		return "Chrome"
	case strings.Contains(userAgent, "Firefox"):
		return "Firefox"
	case strings.Contains(userAgent, "Safari"):
		return "Safari"
	}
	return "Unknown"
}

func parseOS(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	switch {
	case strings.Contains(userAgent, "Windows"):
		return "Windows"
	case strings.Contains(userAgent, "Mac"):
		return "macOS"
	case strings.Contains(userAgent, "Android"):
		return "Android"
	case strings.Contains(userAgent, "iOS"):
		return "iOS"
	case strings.Contains(userAgent, "Linux"):
		return "Linux"
	}
	return "Unknown"
}
