package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t,
		"Context:\nX is a value.\n\nQuestion: What is X?\n\nAnswer clearly and concisely:",
		BuildPrompt("What is X?", "X is a value."),
	)
}

func TestBuildPromptVerbatim(t *testing.T) {
	doc := "line one\n{braces} and %s"
	question := "  padded?  "
	assert.Equal(t,
		"Context:\n"+doc+"\n\nQuestion: "+question+"\n\nAnswer clearly and concisely:",
		BuildPrompt(question, doc),
	)
}

func TestComposerAnswer(t *testing.T) {
	gen := &recordingGenerator{answer: "  X is a value, verbatim.\n"}
	c := NewComposer(gen)

	answer, err := c.Answer(context.Background(), "What is X?", "X is a value.")
	require.NoError(t, err)
	assert.Equal(t, "  X is a value, verbatim.\n", answer)

	require.Len(t, gen.calls(), 1)
	assert.Equal(t, "Context:\nX is a value.\n\nQuestion: What is X?\n\nAnswer clearly and concisely:", gen.calls()[0])
}

func TestComposerGenerationError(t *testing.T) {
	gen := &recordingGenerator{err: errors.New("connection refused")}
	c := NewComposer(gen)

	_, err := c.Answer(context.Background(), "What is X?", "X is a value.")
	require.Error(t, err)
	assert.True(t, apierrors.IsGeneration(err))
	assert.ErrorContains(t, err, "connection refused")
	assert.Len(t, gen.calls(), 1, "generation must not be retried")
}

func TestComposerRejectsBlankInput(t *testing.T) {
	gen := &recordingGenerator{answer: "unused"}
	c := NewComposer(gen)

	_, err := c.Answer(context.Background(), " ", "ctx")
	assert.True(t, apierrors.IsValidation(err))

	_, err = c.Answer(context.Background(), "q", "")
	assert.True(t, apierrors.IsValidation(err))

	assert.Empty(t, gen.calls())
}
