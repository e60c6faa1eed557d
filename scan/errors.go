package scan

import "errors"

// Usage errors. These are returned to the caller; content-path failures
// never are.
var (
	ErrNotConfigured   = errors.New("scan: no default scorer configured")
	ErrInvalidScanType = errors.New("scan: invalid scan type")
	ErrInvalidPolicy   = errors.New("scan: invalid policy")
	ErrInvalidChunk    = errors.New("scan: invalid chunk")
	ErrInvalidToolCall = errors.New("scan: invalid tool call")
)

// Content-path failures, recorded in Verdict.Error.
var (
	errScorerFailed = errors.New("scorer call failed")
	errNoAnalysis   = errors.New("scorer returned no analysis")
	errUnsuccessful = errors.New("scorer reported failure")
	errMissingScore = errors.New("analysis has no prompt_injection score")
	errScoreRange   = errors.New("prompt_injection score outside [0, 1]")
)
