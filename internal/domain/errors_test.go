package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Store.Update", ErrNotFound, "item 0009")
	want := "Store.Update: item 0009: not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is should match the wrapped sentinel")
	}
}

func TestErrorCodeOfSubsystem(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{NewSubSystemError("canvas", "op", ErrNotFound, ""), CodeItemNotFound},
		{NewSubSystemError("sheet", "op", ErrInvalidInput, ""), CodeSheetRefMissing},
		{NewSubSystemError("document", "op", ErrInvalidInput, ""), CodeDocRefMissing},
		{NewSubSystemError("workspace", "op", ErrProviderError, ""), CodeRelayError},
		{NewSubSystemError("unknown", "op", ErrNotFound, ""), CodeNotFound},
		{NewDomainError("op", ErrToolNotFound, "x"), CodeToolNotFound},
		{fmt.Errorf("wrapped: %w", ErrRateLimit), CodeRateLimit},
		{errors.New("opaque"), CodeUnknown},
		{nil, CodeUnknown},
	}
	for _, tt := range tests {
		if got := ErrorCodeOf(tt.err); got != tt.want {
			t.Errorf("ErrorCodeOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestWrapOp(t *testing.T) {
	if WrapOp("op", nil) != nil {
		t.Error("WrapOp(nil) should be nil")
	}
	err := WrapOp("fetch", ErrTimeout)
	if !errors.Is(err, ErrTimeout) {
		t.Error("WrapOp should preserve the sentinel")
	}
}
