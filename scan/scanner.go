package scan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Scanner applies policy to the scores produced by a Scorer. It holds no
// mutable state and is safe for concurrent use.
type Scanner struct {
	scorer Scorer
	logger hclog.Logger
	newTag func() string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger used for fail-secure warnings and debug output.
func WithLogger(l hclog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTagFunc replaces NewTag as the source of correlation tags.
func WithTagFunc(f func() string) Option {
	return func(s *Scanner) {
		if f != nil {
			s.newTag = f
		}
	}
}

// NewScanner creates a Scanner that calls scorer.
func NewScanner(scorer Scorer, opts ...Option) *Scanner {
	s := &Scanner{
		scorer: scorer,
		logger: hclog.NewNullLogger(),
		newTag: NewTag,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TextRequest is the input to ScanText.
type TextRequest struct {
	Text string

	// ScanType defaults to ScanInput.
	ScanType ScanType

	// Tag links this scan to a paired one. Generated when empty.
	Tag string

	Policy Policy
	Meta   Meta
}

// MessagesRequest is the input to ScanMessages.
type MessagesRequest struct {
	Messages []Message
	ScanType ScanType
	Tag      string
	Policy   Policy
	Meta     Meta
}

// RAGRequest is the input to ScanRAGChunks.
type RAGRequest struct {
	Query  string
	Chunks []Chunk
	Policy Policy
	Meta   Meta
}

// ToolCallRequest is the input to ScanToolCall.
type ToolCallRequest struct {
	UserMessage string
	ToolName    string
	ToolArgs    map[string]any

	// ToolSchema is optional.
	ToolSchema ToolSchema

	Policy Policy
	Meta   Meta
}

// ScanText classifies a single text. Empty text is scanned like any other.
// The returned error is non-nil only for invalid scan types or policies.
func (s *Scanner) ScanText(ctx context.Context, req TextRequest) (Verdict, error) {
	st, p, err := prepare(req.ScanType, req.Policy)
	if err != nil {
		return Verdict{}, err
	}
	return s.scan(ctx, req.Text, st, req.Tag, p, req.Meta), nil
}

// ScanMessages classifies a conversation as one text blob: each message
// becomes "[role]: content", joined by newlines in original order.
func (s *Scanner) ScanMessages(ctx context.Context, req MessagesRequest) (Verdict, error) {
	st, p, err := prepare(req.ScanType, req.Policy)
	if err != nil {
		return Verdict{}, err
	}
	return s.scan(ctx, ConversationText(req.Messages), st, req.Tag, p, req.Meta), nil
}

// ConversationText flattens messages into the text sent by ScanMessages.
func ConversationText(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = "unknown"
		}
		lines = append(lines, fmt.Sprintf("[%s]: %s", role, m.Content))
	}
	return strings.Join(lines, "\n")
}

// ScanRAGChunks scans each retrieved chunk and partitions them into safe and
// flagged sets, preserving retrieval order in both. Chunks beyond
// Policy.MaxChunksToScan are flagged as unscanned. Unless
// Policy.SkipQueryScan is set, the query is scanned too and counts toward
// IsSafe.
func (s *Scanner) ScanRAGChunks(ctx context.Context, req RAGRequest) (RAGScanResult, error) {
	p, err := req.Policy.Effective()
	if err != nil {
		return RAGScanResult{}, err
	}
	for i, c := range req.Chunks {
		if c == nil {
			return RAGScanResult{}, fmt.Errorf("chunk %d: %w: nil chunk", i, ErrInvalidChunk)
		}
	}

	limit := len(req.Chunks)
	if p.MaxChunksToScan > 0 && p.MaxChunksToScan < limit {
		limit = p.MaxChunksToScan
	}

	result := RAGScanResult{
		Query:           req.Query,
		TotalChunks:     len(req.Chunks),
		SafeChunks:      []ChunkResult{},
		FlaggedChunks:   []ChunkResult{},
		VerdictPerChunk: make([]Verdict, 0, len(req.Chunks)),
	}

	for i, c := range req.Chunks {
		text := c.Text()
		meta := req.Meta.with("chunk_index", i)

		var v Verdict
		if i < limit {
			v = s.scan(ctx, text, ScanInput, "", p, meta)
		} else {
			v = unscannedVerdict(p, meta, limit)
		}
		result.VerdictPerChunk = append(result.VerdictPerChunk, v)

		cr := ChunkResult{Index: i, Text: text, Score: v.Score, Chunk: c}
		switch {
		case v.IsSafe:
			result.SafeChunks = append(result.SafeChunks, cr)
			continue
		case i >= limit:
			cr.Reason = ReasonUnscanned
		case v.Failed():
			cr.Reason = ReasonFailed
		default:
			cr.Reason = ReasonFlagged
		}
		result.FlaggedChunks = append(result.FlaggedChunks, cr)
	}

	result.IsSafe = len(result.FlaggedChunks) == 0
	if !p.SkipQueryScan {
		qv := s.scan(ctx, req.Query, ScanInput, "", p, req.Meta.with("component", "rag_query"))
		result.QueryVerdict = &qv
		result.IsSafe = result.IsSafe && qv.IsSafe
	}

	if skipped := len(req.Chunks) - limit; skipped > 0 {
		s.logger.Warn("chunk limit reached, flagging unscanned chunks",
			"max_chunks_to_scan", limit, "unscanned", skipped)
	}
	return result, nil
}

func unscannedVerdict(p Policy, meta Meta, limit int) Verdict {
	return Verdict{
		IsSafe:      false,
		Score:       1.0,
		Threshold:   p.Threshold,
		ScanType:    ScanInput,
		Meta:        meta,
		RawAnalysis: []Record{},
		Error:       fmt.Sprintf("not scanned: chunk limit %d reached", limit),
	}
}

// ScanToolCall scans the user message and the proposed tool call separately,
// then combines them. The combined score is the higher of the two, so one
// dangerous signal cannot be diluted by a benign one; a failed sub-scan scores
// 1.0 and therefore always blocks.
func (s *Scanner) ScanToolCall(ctx context.Context, req ToolCallRequest) (ToolCallScanResult, error) {
	if strings.TrimSpace(req.ToolName) == "" {
		return ToolCallScanResult{}, fmt.Errorf("%w: tool name is required", ErrInvalidToolCall)
	}
	p, err := req.Policy.Effective()
	if err != nil {
		return ToolCallScanResult{}, err
	}

	userVerdict := s.scan(ctx, req.UserMessage, ScanInput, "", p,
		req.Meta.with("component", "tool_call_user_intent"))

	toolMeta := req.Meta.with("tool", req.ToolName).with("component", "tool_context")
	toolContext := ToolContext(req.ToolName, req.ToolArgs, req.ToolSchema)
	toolVerdict := s.scan(ctx, toolContext, ScanInput, "", p, toolMeta)

	combined := math.Max(userVerdict.Score, toolVerdict.Score)
	return ToolCallScanResult{
		IsSafe:             userVerdict.IsSafe && toolVerdict.IsSafe,
		ToolName:           req.ToolName,
		UserIntentSafe:     userVerdict.IsSafe,
		ToolArgsSafe:       toolVerdict.IsSafe,
		CombinedScore:      combined,
		UserMessageVerdict: userVerdict,
		ToolContextVerdict: toolVerdict,
		Recommendation:     p.recommend(combined),
	}, nil
}

func prepare(st ScanType, p Policy) (ScanType, Policy, error) {
	if st == "" {
		st = ScanInput
	}
	if err := st.Validate(); err != nil {
		return "", Policy{}, err
	}
	eff, err := p.Effective()
	if err != nil {
		return "", Policy{}, err
	}
	return st, eff, nil
}

// scan runs one scorer call and converts the outcome into a Verdict. It never
// fails: any problem with the call yields the fail-secure verdict.
func (s *Scanner) scan(ctx context.Context, text string, st ScanType, tag string, p Policy, meta Meta) Verdict {
	if tag == "" {
		tag = s.newTag()
	}
	v := Verdict{
		ScanType:    st,
		Tag:         tag,
		Threshold:   p.Threshold,
		Meta:        meta,
		RawAnalysis: []Record{},
	}

	analysis, err := s.analyze(ctx, text, st, tag)
	if err != nil {
		return s.failSecure(v, err)
	}

	score, ok := analysis.PromptInjectionScore()
	if !ok {
		return s.failSecure(v, errMissingScore)
	}
	if math.IsNaN(score) || score < 0 || score > 1 {
		return s.failSecure(v, fmt.Errorf("%w: %v", errScoreRange, score))
	}

	v.Score = score
	v.IsSafe = IsSafe(score, p.Threshold)
	if analysis.Records != nil {
		v.RawAnalysis = analysis.Records
	}
	s.logger.Debug("scan complete", "tag", tag, "scan_type", st, "score", score, "safe", v.IsSafe)
	return v
}

// analyze calls the scorer, folding every failure mode (error, panic, nil or
// unsuccessful analysis) into an error.
func (s *Scanner) analyze(ctx context.Context, text string, st ScanType, tag string) (a *Analysis, err error) {
	if s.scorer == nil {
		return nil, fmt.Errorf("%w: nil scorer", errScorerFailed)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errScorerFailed, err)
	}

	defer func() {
		if r := recover(); r != nil {
			a = nil
			err = fmt.Errorf("%w: panic: %v", errScorerFailed, r)
		}
	}()

	a, err = s.scorer.Analyze(ctx, text, st, tag)
	switch {
	case err != nil:
		return nil, fmt.Errorf("%w: %w", errScorerFailed, err)
	case a == nil:
		return nil, errNoAnalysis
	case !a.Success:
		if a.Error != "" {
			return nil, fmt.Errorf("%w: %s", errUnsuccessful, a.Error)
		}
		return nil, errUnsuccessful
	}
	return a, nil
}

func (s *Scanner) failSecure(v Verdict, err error) Verdict {
	v.IsSafe = false
	v.Score = 1.0
	v.RawAnalysis = []Record{}
	v.Error = err.Error()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("scan interrupted, failing secure", "tag", v.Tag, "scan_type", v.ScanType, "error", err)
		return v
	}
	s.logger.Warn("scan failed, failing secure", "tag", v.Tag, "scan_type", v.ScanType, "error", err)
	return v
}
