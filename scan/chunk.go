package scan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Chunk is one retrieved document fragment: a TextChunk or a StructuredChunk.
type Chunk interface {
	// Text returns the content that is sent to the scorer.
	Text() string
	isChunk()
}

// TextChunk is a bare text chunk.
type TextChunk string

func (c TextChunk) Text() string { return string(c) }
func (TextChunk) isChunk()       {}

// StructuredChunk is a chunk with metadata, e.g. a vector store hit.
// Its text is read from the first non-empty string under one of
// ChunkTextKeys; a chunk with none of them is scanned as its JSON encoding.
type StructuredChunk map[string]any

// ChunkTextKeys are the keys consulted, in order, for a StructuredChunk's text.
var ChunkTextKeys = []string{"text", "content", "page_content"}

func (c StructuredChunk) Text() string {
	for _, k := range ChunkTextKeys {
		if s, ok := c[k].(string); ok && s != "" {
			return s
		}
	}
	// encoding/json sorts map keys, so the fallback is deterministic.
	b, err := json.Marshal(map[string]any(c))
	if err != nil {
		return fmt.Sprint(map[string]any(c))
	}
	return string(b)
}

func (StructuredChunk) isChunk() {}

// NewChunk converts a decoded value (string or JSON object) into a Chunk.
func NewChunk(v any) (Chunk, error) {
	switch c := v.(type) {
	case Chunk:
		return c, nil
	case string:
		return TextChunk(c), nil
	case map[string]any:
		return StructuredChunk(c), nil
	default:
		return nil, fmt.Errorf("%w: unsupported chunk type %T", ErrInvalidChunk, v)
	}
}

// ParseChunks decodes a JSON array whose elements are strings or objects.
func ParseChunks(data []byte) ([]Chunk, error) {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChunk, err)
	}
	chunks := make([]Chunk, 0, len(raw))
	for i, v := range raw {
		c, err := NewChunk(v)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// TextChunks wraps plain strings as chunks.
func TextChunks(texts ...string) []Chunk {
	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = TextChunk(t)
	}
	return chunks
}

// ToolSchema describes the tool being called: a SchemaDescription or a
// StructuredSchema.
type ToolSchema interface {
	contextLine() string
}

// SchemaDescription is a free-text description of a tool.
type SchemaDescription string

func (s SchemaDescription) contextLine() string {
	if s == "" {
		return ""
	}
	return "Description: " + string(s)
}

// StructuredSchema is a JSON-schema-like description of a tool.
type StructuredSchema map[string]any

func (s StructuredSchema) contextLine() string {
	if len(s) == 0 {
		return ""
	}
	return "Schema: " + encodeDeterministic(map[string]any(s))
}

// ToolContext builds the text scanned for a proposed tool call:
//
//	Tool: <name>
//	Description: <text>      or   Schema: <json>    (when a schema is given)
//	Arguments: <json>
func ToolContext(name string, args map[string]any, schema ToolSchema) string {
	lines := []string{"Tool: " + name}
	if schema != nil {
		if line := schema.contextLine(); line != "" {
			lines = append(lines, line)
		}
	}
	if args == nil {
		args = map[string]any{}
	}
	lines = append(lines, "Arguments: "+encodeDeterministic(args))
	return strings.Join(lines, "\n")
}

func encodeDeterministic(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// fmt prints maps in sorted key order too.
		return fmt.Sprint(v)
	}
	return string(b)
}
