package scan

import (
	"context"
	"sync/atomic"
)

// defaultScanner is the process-wide Scanner used by the package-level Scan*
// functions. It is swapped atomically: a call that already loaded it keeps
// using that Scanner even if Configure runs mid-flight.
var defaultScanner atomic.Pointer[Scanner]

// Configure installs scorer as the process-wide default, replacing any
// previous one. Passing a nil scorer clears the default.
func Configure(scorer Scorer, opts ...Option) {
	if scorer == nil {
		defaultScanner.Store(nil)
		return
	}
	defaultScanner.Store(NewScanner(scorer, opts...))
}

// Reset clears the process-wide default. Tests call it between cases.
func Reset() {
	defaultScanner.Store(nil)
}

// Default returns the process-wide Scanner, or ErrNotConfigured.
func Default() (*Scanner, error) {
	s := defaultScanner.Load()
	if s == nil {
		return nil, ErrNotConfigured
	}
	return s, nil
}

// Configured returns the process-wide default scorer, or ErrNotConfigured.
func Configured() (Scorer, error) {
	s, err := Default()
	if err != nil {
		return nil, err
	}
	return s.scorer, nil
}

// ScanText scans one text with the default Scanner.
func ScanText(ctx context.Context, req TextRequest) (Verdict, error) {
	s, err := Default()
	if err != nil {
		return Verdict{}, err
	}
	return s.ScanText(ctx, req)
}

// ScanMessages scans a conversation with the default Scanner.
func ScanMessages(ctx context.Context, req MessagesRequest) (Verdict, error) {
	s, err := Default()
	if err != nil {
		return Verdict{}, err
	}
	return s.ScanMessages(ctx, req)
}

// ScanRAGChunks scans a retrieval batch with the default Scanner.
func ScanRAGChunks(ctx context.Context, req RAGRequest) (RAGScanResult, error) {
	s, err := Default()
	if err != nil {
		return RAGScanResult{}, err
	}
	return s.ScanRAGChunks(ctx, req)
}

// ScanToolCall scans a proposed tool call with the default Scanner.
func ScanToolCall(ctx context.Context, req ToolCallRequest) (ToolCallScanResult, error) {
	s, err := Default()
	if err != nil {
		return ToolCallScanResult{}, err
	}
	return s.ScanToolCall(ctx, req)
}
