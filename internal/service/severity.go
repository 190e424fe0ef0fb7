package service

import (
	"strings"

	"github.com/errwatch/errwatch-backend/internal/domain"
)

// CalculateSeverity classifies an error with ordered rules, first match wins.
// Security signals dominate: an "unauthorized" message is critical even when
// a status code is also present.
func CalculateSeverity(errType, message, code string, ctx domain.ErrorContext) domain.Severity {
	lowerMsg := strings.ToLower(message)

	// 1. Security-related errors
	if errType == "SecurityError" ||
		strings.Contains(lowerMsg, "unauthorized") ||
		strings.Contains(lowerMsg, "authentication") {
		return domain.SeverityCritical
	}

	// 2. System/infrastructure errors
	if code == "ECONNREFUSED" || code == "ENOTFOUND" ||
		strings.Contains(lowerMsg, "database") ||
		strings.Contains(lowerMsg, "timeout") {
		return domain.SeverityHigh
	}

	// 3. Validation errors
	if errType == "ValidationError" ||
		(errType == "TypeError" && ctx.UserInput != "") {
		return domain.SeverityMedium
	}

	// 4. Client errors (4xx)
	if ctx.StatusCode >= 400 && ctx.StatusCode < 500 {
		return domain.SeverityLow
	}

	// 5. Server errors (5xx)
	if ctx.StatusCode >= 500 {
		return domain.SeverityHigh
	}

	return domain.SeverityMedium
}
