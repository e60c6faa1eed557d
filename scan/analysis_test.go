package scan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisDecode(t *testing.T) {
	payload := `{
		"success": true,
		"tag": "abc",
		"analysis": [
			{"type": "score", "name": "prompt_injection", "result": 0.42},
			{"type": "PII", "result": [{"label": "EMAIL", "text": "a@b.c"}]},
			{"type": "sentiment", "result": {"label": "neutral"}}
		]
	}`

	var a Analysis
	require.NoError(t, json.Unmarshal([]byte(payload), &a))

	score, ok := a.PromptInjectionScore()
	require.True(t, ok)
	assert.Equal(t, 0.42, score)
	assert.Equal(t, []PIIFinding{{Label: "EMAIL", Text: "a@b.c"}}, a.PII())
	assert.JSONEq(t, `{"label": "neutral"}`, string(a.Records[2].Raw))
}

func TestAnalysisDecode_NullScoreIsMissing(t *testing.T) {
	var a Analysis
	require.NoError(t, json.Unmarshal([]byte(`{"success": true, "analysis": [
		{"type": "score", "name": "prompt_injection", "result": null}
	]}`), &a))

	_, ok := a.PromptInjectionScore()
	assert.False(t, ok)
}

func TestRecordEncode(t *testing.T) {
	b, err := json.Marshal([]Record{
		ScoreRecord(PromptInjectionName, 0.3),
		PIIRecord(),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type": "score", "name": "prompt_injection", "result": 0.3},
		{"type": "PII", "result": []}
	]`, string(b))
}
