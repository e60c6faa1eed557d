package scan

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexes(chunks []ChunkResult) []int {
	out := make([]int, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Index)
	}
	return out
}

func TestScanRAGChunks_PartitionsInOrder(t *testing.T) {
	texts := make([]string, 10)
	scores := map[string]float64{}
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %d", i)
		scores[texts[i]] = 0.1
	}
	scores["chunk 2"] = 0.9
	scores["chunk 7"] = 0.8

	s := NewScanner(&fakeScorer{scores: scores})
	res, err := s.ScanRAGChunks(context.Background(), RAGRequest{
		Query:  "what is in the docs",
		Chunks: TextChunks(texts...),
	})
	require.NoError(t, err)

	assert.Equal(t, 10, res.TotalChunks)
	assert.Equal(t, []int{0, 1, 3, 4, 5, 6, 8, 9}, indexes(res.SafeChunks))
	assert.Equal(t, []int{2, 7}, indexes(res.FlaggedChunks))
	assert.False(t, res.IsSafe)
	require.Len(t, res.VerdictPerChunk, 10)
	for i, v := range res.VerdictPerChunk {
		assert.Equal(t, i, v.Meta["chunk_index"])
	}
	assert.Equal(t, ReasonFlagged, res.FlaggedChunks[0].Reason)
	assert.Equal(t, 0.9, res.FlaggedChunks[0].Score)
	assert.Equal(t, TextChunk("chunk 2"), res.FlaggedChunks[0].Chunk)
	require.NotNil(t, res.QueryVerdict)
	assert.True(t, res.QueryVerdict.IsSafe)
}

func TestScanRAGChunks_AllSafe(t *testing.T) {
	s := NewScanner(&fakeScorer{score: 0.1})
	res, err := s.ScanRAGChunks(context.Background(), RAGRequest{
		Query: "q",
		Chunks: []Chunk{
			TextChunk("plain"),
			StructuredChunk{"text": "from text key", "source": "a.pdf"},
			StructuredChunk{"content": "from content key"},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.IsSafe)
	assert.Equal(t, 3, res.SafeCount())
	assert.Equal(t, 0, res.FlaggedCount())
	assert.Equal(t, "plain\n\nfrom text key\n\nfrom content key", res.SafeText("\n\n"))
}

func TestScanRAGChunks_UnsafeQueryFailsAggregate(t *testing.T) {
	s := NewScanner(&fakeScorer{score: 0.1, scores: map[string]float64{"evil query": 0.95}})
	res, err := s.ScanRAGChunks(context.Background(), RAGRequest{
		Query:  "evil query",
		Chunks: TextChunks("fine"),
	})
	require.NoError(t, err)
	assert.Len(t, res.SafeChunks, 1)
	assert.False(t, res.IsSafe)
}

func TestScanRAGChunks_SkipQueryScan(t *testing.T) {
	scorer := &fakeScorer{score: 0.1}
	res, err := NewScanner(scorer).ScanRAGChunks(context.Background(), RAGRequest{
		Query:  "q",
		Chunks: TextChunks("a", "b"),
		Policy: Policy{SkipQueryScan: true},
	})
	require.NoError(t, err)
	assert.True(t, res.IsSafe)
	assert.Nil(t, res.QueryVerdict)
	assert.Len(t, scorer.calls, 2)
}

func TestScanRAGChunks_MaxChunksFlagsRest(t *testing.T) {
	scorer := &fakeScorer{score: 0.1}
	res, err := NewScanner(scorer).ScanRAGChunks(context.Background(), RAGRequest{
		Query:  "q",
		Chunks: TextChunks("a", "b", "c", "d", "e"),
		Policy: Policy{MaxChunksToScan: 3},
	})
	require.NoError(t, err)

	// 3 chunks + the query.
	assert.Len(t, scorer.calls, 4)
	assert.Equal(t, []int{0, 1, 2}, indexes(res.SafeChunks))
	assert.Equal(t, []int{3, 4}, indexes(res.FlaggedChunks))
	for _, c := range res.FlaggedChunks {
		assert.Equal(t, ReasonUnscanned, c.Reason)
		assert.Equal(t, 1.0, c.Score)
	}
	require.Len(t, res.VerdictPerChunk, 5)
	assert.False(t, res.VerdictPerChunk[4].IsSafe)
	assert.True(t, res.VerdictPerChunk[4].Failed())
	assert.False(t, res.IsSafe)
}

func TestScanRAGChunks_FailedChunk(t *testing.T) {
	s := NewScanner(&fakeScorer{err: fmt.Errorf("timeout")})
	res, err := s.ScanRAGChunks(context.Background(), RAGRequest{
		Query:  "q",
		Chunks: TextChunks("a", "b"),
	})
	require.NoError(t, err)
	assert.Empty(t, res.SafeChunks)
	assert.Equal(t, []int{0, 1}, indexes(res.FlaggedChunks))
	assert.Equal(t, ReasonFailed, res.FlaggedChunks[0].Reason)
	assert.False(t, res.IsSafe)
}

func TestScanRAGChunks_PartitionInvariant(t *testing.T) {
	scores := map[string]float64{}
	var texts []string
	for i := 0; i < 25; i++ {
		text := fmt.Sprintf("c%d", i)
		texts = append(texts, text)
		scores[text] = float64(i%7) / 7
	}

	for _, limit := range []int{0, 1, 10, 25, 40} {
		res, err := NewScanner(&fakeScorer{scores: scores}).ScanRAGChunks(context.Background(), RAGRequest{
			Chunks: TextChunks(texts...),
			Policy: Policy{MaxChunksToScan: limit},
		})
		require.NoError(t, err)
		assert.Equal(t, res.TotalChunks, len(res.SafeChunks)+len(res.FlaggedChunks))

		seen := map[int]bool{}
		for _, part := range [][]ChunkResult{res.SafeChunks, res.FlaggedChunks} {
			prev := -1
			for _, c := range part {
				assert.False(t, seen[c.Index], "index %d appears twice", c.Index)
				assert.Greater(t, c.Index, prev, "partition out of order")
				seen[c.Index] = true
				prev = c.Index
			}
		}
		assert.Len(t, seen, 25)
	}
}

func TestScanRAGChunks_EmptyChunks(t *testing.T) {
	res, err := NewScanner(&fakeScorer{score: 0.1}).ScanRAGChunks(context.Background(), RAGRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalChunks)
	assert.True(t, res.IsSafe)
	assert.NotNil(t, res.SafeChunks)
	assert.NotNil(t, res.FlaggedChunks)
}

func TestScanRAGChunks_DoesNotMutateMeta(t *testing.T) {
	meta := Meta{"retriever": "pinecone"}
	_, err := NewScanner(&fakeScorer{score: 0.1}).ScanRAGChunks(context.Background(), RAGRequest{
		Chunks: TextChunks("a"),
		Meta:   meta,
	})
	require.NoError(t, err)
	assert.Equal(t, Meta{"retriever": "pinecone"}, meta)
}

func TestScanRAGChunks_NilChunk(t *testing.T) {
	_, err := NewScanner(&fakeScorer{}).ScanRAGChunks(context.Background(), RAGRequest{
		Chunks: []Chunk{TextChunk("a"), nil},
	})
	require.ErrorIs(t, err, ErrInvalidChunk)
}
