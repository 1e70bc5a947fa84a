package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractReasoningPlainText(t *testing.T) {
	trace, content := ExtractReasoning("The headcount is 42.")
	assert.Empty(t, trace)
	assert.Equal(t, "The headcount is 42.", content)
}

func TestExtractReasoningSingleBlock(t *testing.T) {
	trace, content := ExtractReasoning("<think>count active employees</think>The headcount is 42.")
	assert.Equal(t, "count active employees", trace)
	assert.Equal(t, "The headcount is 42.", content)
}

func TestExtractReasoningMultipleBlocks(t *testing.T) {
	trace, content := ExtractReasoning("<think>first</think>Answer<think>second</think> part two")
	assert.Equal(t, "first\nsecond", trace)
	assert.Equal(t, "Answer part two", content)
}

func TestExtractReasoningUnbalancedMarker(t *testing.T) {
	text := "Answer with a stray <think>marker"
	trace, content := ExtractReasoning(text)
	assert.Empty(t, trace)
	assert.Equal(t, text, content)
}

func TestExtractReasoningEmptyBlock(t *testing.T) {
	trace, content := ExtractReasoning("<think>  </think>Just the answer")
	assert.Empty(t, trace)
	assert.Equal(t, "Just the answer", content)
}

func TestExtractReasoningOnlyReasoning(t *testing.T) {
	trace, content := ExtractReasoning("<think>nothing else here</think>")
	assert.Equal(t, "nothing else here", trace)
	assert.Empty(t, content)
}
