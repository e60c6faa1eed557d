package client

import "github.com/sonnylabs/sonnylabs-go/scan"

// Detection summarizes the prompt-injection score of one analysis.
type Detection struct {
	Score     float64 `json:"score"`
	Tag       string  `json:"tag"`
	Detected  bool    `json:"detected"`
	Threshold float64 `json:"threshold"`
}

// PromptInjection extracts the prompt-injection score from a successful
// analysis. The second result is false when the analysis failed or carries
// no score. A zero threshold selects scan.DefaultThreshold.
func PromptInjection(a *scan.Analysis, threshold float64) (Detection, bool) {
	if a == nil || !a.Success {
		return Detection{}, false
	}
	score, ok := a.PromptInjectionScore()
	if !ok {
		return Detection{}, false
	}
	if threshold == 0 {
		threshold = scan.DefaultThreshold
	}
	return Detection{
		Score:     score,
		Tag:       a.Tag,
		Detected:  !scan.IsSafe(score, threshold),
		Threshold: threshold,
	}, true
}

// IsPromptInjection reports whether the analysis scored at or above threshold.
// A failed analysis or a missing score reports false; use scan.Scanner for
// fail-secure handling.
func IsPromptInjection(a *scan.Analysis, threshold float64) bool {
	d, ok := PromptInjection(a, threshold)
	return ok && d.Detected
}

// PIIItem is a PII finding tagged with the analysis it came from.
type PIIItem struct {
	Label string `json:"label"`
	Text  string `json:"text"`
	Tag   string `json:"tag"`
}

// PII lists the PII findings of a successful analysis.
func PII(a *scan.Analysis) []PIIItem {
	if a == nil || !a.Success {
		return nil
	}
	findings := a.PII()
	items := make([]PIIItem, 0, len(findings))
	for _, f := range findings {
		items = append(items, PIIItem{Label: f.Label, Text: f.Text, Tag: a.Tag})
	}
	return items
}
