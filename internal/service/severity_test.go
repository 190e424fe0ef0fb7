package service

import (
	"testing"

	"github.com/errwatch/errwatch-backend/internal/domain"
)

func TestCalculateSeverity(t *testing.T) {
	tests := []struct {
		name    string
		errType string
		message string
		code    string
		ctx     domain.ErrorContext
		want    domain.Severity
	}{
		{
			name:    "security error type",
			errType: "SecurityError",
			message: "blocked",
			want:    domain.SeverityCritical,
		},
		{
			name:    "unauthorized message",
			errType: "Error",
			message: "Unauthorized access attempt",
			want:    domain.SeverityCritical,
		},
		{
			name:    "authentication message",
			errType: "Error",
			message: "authentication token expired",
			want:    domain.SeverityCritical,
		},
		{
			name:    "security beats status code",
			errType: "Error",
			message: "unauthorized",
			ctx:     domain.ErrorContext{StatusCode: 401},
			want:    domain.SeverityCritical,
		},
		{
			name:    "connection refused code",
			errType: "Error",
			message: "connect failed",
			code:    "ECONNREFUSED",
			want:    domain.SeverityHigh,
		},
		{
			name:    "dns failure code",
			errType: "Error",
			message: "lookup failed",
			code:    "ENOTFOUND",
			want:    domain.SeverityHigh,
		},
		{
			name:    "database message",
			errType: "Error",
			message: "database connection pool exhausted",
			want:    domain.SeverityHigh,
		},
		{
			name:    "timeout message",
			errType: "Error",
			message: "request timeout after 30s",
			want:    domain.SeverityHigh,
		},
		{
			name:    "validation error type",
			errType: "ValidationError",
			message: "email is invalid",
			want:    domain.SeverityMedium,
		},
		{
			name:    "type error with user input",
			errType: "TypeError",
			message: "cannot read property",
			ctx:     domain.ErrorContext{UserInput: "abc"},
			want:    domain.SeverityMedium,
		},
		{
			name:    "client error status",
			errType: "Error",
			message: "not found",
			ctx:     domain.ErrorContext{StatusCode: 404},
			want:    domain.SeverityLow,
		},
		{
			name:    "server error status",
			errType: "Error",
			message: "internal failure",
			ctx:     domain.ErrorContext{StatusCode: 503},
			want:    domain.SeverityHigh,
		},
		{
			name:    "no signals defaults to medium",
			errType: "Error",
			message: "something odd happened",
			want:    domain.SeverityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateSeverity(tt.errType, tt.message, tt.code, tt.ctx)
			if got != tt.want {
				t.Errorf("CalculateSeverity() = %s, want %s", got, tt.want)
			}
		})
	}
}
