package scan

import (
	"fmt"
	"strings"
)

// ScanType is the classification context sent along with the text.
type ScanType string

const (
	ScanInput      ScanType = "input"
	ScanOutput     ScanType = "output"
	ScanToolOutput ScanType = "tool_output"
)

// ParseScanType converts a user-supplied string into a ScanType.
// The empty string maps to ScanInput.
func ParseScanType(s string) (ScanType, error) {
	t := ScanType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return ScanInput, nil
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

// Validate reports whether t is one of the known scan types.
func (t ScanType) Validate() error {
	switch t {
	case ScanInput, ScanOutput, ScanToolOutput:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidScanType, string(t))
	}
}

// Meta is caller-supplied provenance (source, url, session id). It is carried
// into verdicts and never inspected by the scanner.
type Meta map[string]any

// with returns a copy of m with key set to value. m itself is left untouched.
func (m Meta) with(key string, value any) Meta {
	out := make(Meta, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = value
	return out
}

// Verdict is the safety judgment derived from one scorer call.
type Verdict struct {
	IsSafe      bool     `json:"is_safe"`
	Score       float64  `json:"score"`
	Threshold   float64  `json:"threshold"`
	ScanType    ScanType `json:"scan_type"`
	Tag         string   `json:"tag"`
	Meta        Meta     `json:"meta,omitempty"`
	RawAnalysis []Record `json:"raw_analysis"`

	// Error is set when the verdict came from the fail-secure path.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the verdict was produced without a successful
// classification.
func (v Verdict) Failed() bool { return v.Error != "" }

func (v Verdict) String() string {
	status := "SAFE"
	if !v.IsSafe {
		status = "INJECTION DETECTED"
	}
	return fmt.Sprintf("%s (score: %.2f)", status, v.Score)
}

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChunkResult is a retrieved chunk placed into the safe or flagged partition.
type ChunkResult struct {
	Index  int     `json:"index"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Chunk  Chunk   `json:"original"`
	Reason string  `json:"reason,omitempty"`
}

// Flag reasons attached to ChunkResult.Reason.
const (
	ReasonFlagged   = "flagged"
	ReasonFailed    = "scan_failed"
	ReasonUnscanned = "unscanned"
)

// RAGScanResult partitions a retrieval batch into safe and flagged chunks.
// SafeChunks and FlaggedChunks together cover every index in [0, TotalChunks)
// exactly once, each in original retrieval order.
type RAGScanResult struct {
	Query           string        `json:"query"`
	TotalChunks     int           `json:"total_chunks"`
	SafeChunks      []ChunkResult `json:"safe_chunks"`
	FlaggedChunks   []ChunkResult `json:"flagged_chunks"`
	IsSafe          bool          `json:"is_safe"`
	VerdictPerChunk []Verdict     `json:"verdict_per_chunk"`

	// QueryVerdict is nil when the policy skipped the query scan.
	QueryVerdict *Verdict `json:"query_verdict,omitempty"`
}

func (r RAGScanResult) SafeCount() int    { return len(r.SafeChunks) }
func (r RAGScanResult) FlaggedCount() int { return len(r.FlaggedChunks) }

// SafeText joins the text of the safe chunks with sep, ready to be placed in
// a prompt.
func (r RAGScanResult) SafeText(sep string) string {
	parts := make([]string, 0, len(r.SafeChunks))
	for _, c := range r.SafeChunks {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, sep)
}

func (r RAGScanResult) String() string {
	status := "SAFE"
	if !r.IsSafe {
		status = "FLAGGED"
	}
	return fmt.Sprintf("%s (%d/%d chunks safe)", status, r.SafeCount(), r.TotalChunks)
}

// Recommendation is the action tier for a proposed tool call.
type Recommendation string

const (
	RecommendProceed Recommendation = "proceed"
	RecommendReview  Recommendation = "review"
	RecommendBlock   Recommendation = "block"
)

// ToolCallScanResult merges the verdicts on the user message and on the
// serialized tool call into one recommendation.
type ToolCallScanResult struct {
	IsSafe             bool           `json:"is_safe"`
	ToolName           string         `json:"tool_name"`
	UserIntentSafe     bool           `json:"user_intent_safe"`
	ToolArgsSafe       bool           `json:"tool_args_safe"`
	CombinedScore      float64        `json:"combined_score"`
	UserMessageVerdict Verdict        `json:"user_message_verdict"`
	ToolContextVerdict Verdict        `json:"tool_context_verdict"`
	Recommendation     Recommendation `json:"recommendation"`
}

func (r ToolCallScanResult) String() string {
	return fmt.Sprintf("%s %s (combined score: %.2f)",
		strings.ToUpper(string(r.Recommendation)), r.ToolName, r.CombinedScore)
}
