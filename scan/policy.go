package scan

import (
	"fmt"
	"math"
)

const (
	// DefaultThreshold is the score at or above which text is unsafe.
	DefaultThreshold = 0.65

	// DefaultBlockThreshold is the combined tool-call score at or above which
	// the recommendation is block.
	DefaultBlockThreshold = 0.85
)

// Policy tunes how scores are judged. Zero values select the defaults.
type Policy struct {
	// Threshold is the injection score at or above which text is unsafe.
	Threshold float64 `yaml:"threshold" json:"threshold,omitempty"`

	// MaxChunksToScan caps how many RAG chunks are sent to the scorer.
	// Chunks past the cap are flagged without being scanned. Zero means no cap.
	MaxChunksToScan int `yaml:"max_chunks_to_scan" json:"max_chunks_to_scan,omitempty"`

	// Action is advisory for the calling application ("block", "warn", "log").
	// The scanner does not act on it.
	Action string `yaml:"action" json:"action,omitempty"`

	// BlockThreshold and ReviewThreshold tier tool-call recommendations.
	// ReviewThreshold defaults to the effective Threshold.
	BlockThreshold  float64 `yaml:"block_threshold" json:"block_threshold,omitempty"`
	ReviewThreshold float64 `yaml:"review_threshold" json:"review_threshold,omitempty"`

	// SkipQueryScan disables scanning the query in ScanRAGChunks.
	SkipQueryScan bool `yaml:"skip_query_scan" json:"skip_query_scan,omitempty"`
}

// DefaultPolicy returns the policy with every default filled in.
func DefaultPolicy() Policy {
	p, _ := Policy{}.Effective()
	return p
}

// Effective validates p and fills in defaults.
func (p Policy) Effective() (Policy, error) {
	if err := checkUnit("threshold", p.Threshold); err != nil {
		return Policy{}, err
	}
	if err := checkUnit("block_threshold", p.BlockThreshold); err != nil {
		return Policy{}, err
	}
	if err := checkUnit("review_threshold", p.ReviewThreshold); err != nil {
		return Policy{}, err
	}
	if p.MaxChunksToScan < 0 {
		return Policy{}, fmt.Errorf("%w: max_chunks_to_scan must not be negative, got %d", ErrInvalidPolicy, p.MaxChunksToScan)
	}
	if p.ReviewThreshold > 0 && p.BlockThreshold > 0 && p.ReviewThreshold >= p.BlockThreshold {
		return Policy{}, fmt.Errorf("%w: review_threshold %.2f must be below block_threshold %.2f",
			ErrInvalidPolicy, p.ReviewThreshold, p.BlockThreshold)
	}

	if p.Threshold == 0 {
		p.Threshold = DefaultThreshold
	}
	if p.BlockThreshold == 0 {
		p.BlockThreshold = DefaultBlockThreshold
	}
	if p.ReviewThreshold == 0 {
		// A threshold above the block line leaves the review tier empty.
		p.ReviewThreshold = math.Min(p.Threshold, p.BlockThreshold)
	}
	if p.ReviewThreshold > p.BlockThreshold {
		return Policy{}, fmt.Errorf("%w: review_threshold %.2f must be below block_threshold %.2f",
			ErrInvalidPolicy, p.ReviewThreshold, p.BlockThreshold)
	}
	return p, nil
}

func checkUnit(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s must be within [0, 1], got %v", ErrInvalidPolicy, name, v)
	}
	return nil
}

// IsSafe is the threshold evaluator: a score is safe only when strictly below
// the threshold. score == threshold is unsafe.
func IsSafe(score, threshold float64) bool {
	return score < threshold
}

// Recommend tiers a combined score: at or above block is block, at or above
// review is review, anything lower proceeds.
func Recommend(score, review, block float64) Recommendation {
	switch {
	case score >= block:
		return RecommendBlock
	case score >= review:
		return RecommendReview
	default:
		return RecommendProceed
	}
}

func (p Policy) recommend(score float64) Recommendation {
	return Recommend(score, p.ReviewThreshold, p.BlockThreshold)
}
