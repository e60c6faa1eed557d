package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredChunkText(t *testing.T) {
	assert.Equal(t, "a", StructuredChunk{"text": "a", "content": "b"}.Text())
	assert.Equal(t, "b", StructuredChunk{"text": "", "content": "b"}.Text())
	assert.Equal(t, "c", StructuredChunk{"page_content": "c"}.Text())
	assert.Equal(t, `{"id":7,"source":"x.pdf"}`, StructuredChunk{"source": "x.pdf", "id": 7}.Text())
}

func TestParseChunks(t *testing.T) {
	chunks, err := ParseChunks([]byte(`["plain", {"text": "structured", "score": 0.8}]`))
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, TextChunk("plain"), chunks[0])
	assert.Equal(t, "structured", chunks[1].Text())

	_, err = ParseChunks([]byte(`["ok", 42]`))
	assert.ErrorIs(t, err, ErrInvalidChunk)

	_, err = ParseChunks([]byte(`{"not": "an array"}`))
	assert.ErrorIs(t, err, ErrInvalidChunk)
}

func TestNewChunk(t *testing.T) {
	c, err := NewChunk(TextChunk("x"))
	require.NoError(t, err)
	assert.Equal(t, "x", c.Text())

	_, err = NewChunk(nil)
	assert.ErrorIs(t, err, ErrInvalidChunk)
}
