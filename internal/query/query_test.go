package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsEmpty(t *testing.T) {
	assert.ErrorIs(t, Validate(""), ErrEmptyQuery)
	assert.ErrorIs(t, Validate("   "), ErrEmptyQuery)
}

func TestValidateAcceptsExactly2000Chars(t *testing.T) {
	text := strings.Repeat("a", 2000)
	assert.NoError(t, Validate(text))
}

func TestValidateRejects2001Chars(t *testing.T) {
	text := strings.Repeat("a", 2001)
	assert.ErrorIs(t, Validate(text), ErrQueryTooLong)
}

func TestNewProducesProcessingQuery(t *testing.T) {
	q, err := New("sentiment on Hamas in US and Israel", "session-1")
	require.NoError(t, err)
	assert.NotEmpty(t, q.QueryID)
	assert.NotEmpty(t, q.Fingerprint)
	assert.Equal(t, "processing", string(q.Status))
}

func TestNewRejectsInvalidText(t *testing.T) {
	_, err := New("", "session-1")
	assert.Error(t, err)
}
