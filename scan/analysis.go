package scan

import (
	"context"
	"encoding/json"
	"fmt"
)

// Record types and names emitted by the classification service.
const (
	RecordTypeScore = "score"
	RecordTypePII   = "PII"

	PromptInjectionName = "prompt_injection"
)

// PIIFinding is one personal-data hit reported by the service.
type PIIFinding struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Record is one typed entry of an analysis: either a named numeric score or a
// list of PII findings. Records of other types keep their raw result.
type Record struct {
	Type  string
	Name  string
	Score *float64
	PII   []PIIFinding
	Raw   json.RawMessage
}

type wireRecord struct {
	Type   string          `json:"type"`
	Name   string          `json:"name,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Record{Type: w.Type, Name: w.Name, Raw: w.Result}

	switch w.Type {
	case RecordTypeScore:
		// A null or non-numeric result leaves Score nil; the scanner then treats the
		// analysis as missing its score.
		var score *float64
		if err := json.Unmarshal(w.Result, &score); err == nil {
			r.Score = score
		}
	case RecordTypePII:
		if len(w.Result) > 0 {
			if err := json.Unmarshal(w.Result, &r.PII); err != nil {
				return fmt.Errorf("PII record: %w", err)
			}
		}
	}
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	w := wireRecord{Type: r.Type, Name: r.Name, Result: r.Raw}
	switch {
	case r.Score != nil:
		b, err := json.Marshal(*r.Score)
		if err != nil {
			return nil, err
		}
		w.Result = b
	case r.Type == RecordTypePII:
		pii := r.PII
		if pii == nil {
			pii = []PIIFinding{}
		}
		b, err := json.Marshal(pii)
		if err != nil {
			return nil, err
		}
		w.Result = b
	}
	return json.Marshal(w)
}

// ScoreRecord builds a score record. Mostly useful for scorers and tests.
func ScoreRecord(name string, score float64) Record {
	return Record{Type: RecordTypeScore, Name: name, Score: &score}
}

// PIIRecord builds a PII record.
func PIIRecord(findings ...PIIFinding) Record {
	return Record{Type: RecordTypePII, PII: findings}
}

// Analysis is the structured payload returned by a Scorer.
type Analysis struct {
	Success bool     `json:"success"`
	Tag     string   `json:"tag"`
	Error   string   `json:"error,omitempty"`
	Records []Record `json:"analysis"`
}

// PromptInjectionScore returns the prompt-injection probability, if the
// analysis carries one.
func (a *Analysis) PromptInjectionScore() (float64, bool) {
	if a == nil {
		return 0, false
	}
	for _, r := range a.Records {
		if r.Type == RecordTypeScore && r.Name == PromptInjectionName && r.Score != nil {
			return *r.Score, true
		}
	}
	return 0, false
}

// PII returns the findings of the first PII record, or nil.
func (a *Analysis) PII() []PIIFinding {
	if a == nil {
		return nil
	}
	for _, r := range a.Records {
		if r.Type == RecordTypePII {
			return r.PII
		}
	}
	return nil
}

// Scorer performs the remote classification call.
//
// Implementations signal failure either by returning an error or by returning
// an Analysis with Success=false. The Scanner treats both the same way.
type Scorer interface {
	Analyze(ctx context.Context, text string, scanType ScanType, tag string) (*Analysis, error)
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(ctx context.Context, text string, scanType ScanType, tag string) (*Analysis, error)

func (f ScorerFunc) Analyze(ctx context.Context, text string, scanType ScanType, tag string) (*Analysis, error) {
	return f(ctx, text, scanType, tag)
}
