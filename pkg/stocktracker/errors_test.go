package stocktracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"stocktracker/pkg/marketdata"
)

func TestErrorFormattingAndUnwrap(t *testing.T) {
	base := errors.New("disk full")
	err := WrapError(ErrCodeDatabase, "append transaction", base)
	if got := err.Error(); got != "DATABASE_ERROR: append transaction: disk full" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := err.Detail(); got != "append transaction: disk full" {
		t.Fatalf("unexpected detail %q", got)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to unwrap")
	}
	if got := NewError(ErrCodeNotFound, "no holding").Error(); got != "NOT_FOUND: no holding" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestErrorCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("replay: %w", NewError(ErrCodeInvalidTransaction, "shares must be positive"))
	if ErrorCodeOf(wrapped) != ErrCodeInvalidTransaction || !IsErrorCode(wrapped, ErrCodeInvalidTransaction) {
		t.Fatalf("expected code through fmt wrapping, got %q", ErrorCodeOf(wrapped))
	}
	if ErrorCodeOf(errors.New("plain")) != "" || ErrorCodeOf(nil) != "" {
		t.Fatalf("expected empty code for plain and nil errors")
	}
}

func TestClassifyMarketError(t *testing.T) {
	tests := []struct {
		err  error
		code ErrorCode
	}{
		{fmt.Errorf("chart: %w: 10Y", marketdata.ErrInvalidRange), ErrCodeInvalidInput},
		{fmt.Errorf("quote: %w", marketdata.ErrUnknownSymbol), ErrCodeNotFound},
		{marketdata.ErrDataUnavailable, ErrCodeDataUnavailable},
		{marketdata.ErrCircuitOpen, ErrCodeDataUnavailable},
		{fmt.Errorf("fetch: %w", context.DeadlineExceeded), ErrCodeDataUnavailable},
	}
	for _, tt := range tests {
		got := classifyMarketError("quote", tt.err)
		if got.Code != tt.code {
			t.Errorf("classifyMarketError(%v) = %s, want %s", tt.err, got.Code, tt.code)
		}
		if !errors.Is(got, tt.err) {
			t.Errorf("expected %v to stay in the chain", tt.err)
		}
	}

	interrupted := classifyMarketError("search", context.Canceled)
	if !strings.Contains(interrupted.Message, "interrupted") {
		t.Fatalf("expected interrupted message, got %q", interrupted.Message)
	}
}
