package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonnylabs/sonnylabs-go/scan"
)

func TestPromptInjection(t *testing.T) {
	a := &scan.Analysis{
		Success: true,
		Tag:     "tag-1",
		Records: []scan.Record{scan.ScoreRecord(scan.PromptInjectionName, 0.7)},
	}

	d, ok := PromptInjection(a, 0)
	require.True(t, ok)
	assert.Equal(t, Detection{Score: 0.7, Tag: "tag-1", Detected: true, Threshold: 0.65}, d)
	assert.True(t, IsPromptInjection(a, 0))
	assert.False(t, IsPromptInjection(a, 0.75))

	// Equal to threshold counts as detected.
	assert.True(t, IsPromptInjection(a, 0.7))
}

func TestPromptInjection_FailedAnalysis(t *testing.T) {
	_, ok := PromptInjection(&scan.Analysis{Success: false}, 0.5)
	assert.False(t, ok)
	assert.False(t, IsPromptInjection(nil, 0.5))
	assert.Nil(t, PII(&scan.Analysis{Success: false}))
}
