package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObjectFencedBlock(t *testing.T) {
	text := "Sure! Here you go:\n```json\n{\"a\": 1}\n```\nLet me know if you need more."
	got, err := extractJSONObject(text)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, got)
}

func TestExtractJSONObjectPlainFence(t *testing.T) {
	text := "```\n{\"a\": 1}\n```"
	got, err := extractJSONObject(text)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, got)
}

func TestExtractJSONObjectBalancedSpan(t *testing.T) {
	text := `The schema is {"tables": {"books": {"id": "INTEGER"}}} as requested.`
	got, err := extractJSONObject(text)
	require.NoError(t, err)
	assert.Equal(t, `{"tables": {"books": {"id": "INTEGER"}}}`, got)
}

func TestExtractJSONObjectBracesInsideStrings(t *testing.T) {
	text := `prefix {"note": "a } inside", "esc": "quote \" and {"} suffix`
	got, err := extractJSONObject(text)
	require.NoError(t, err)
	assert.Equal(t, `{"note": "a } inside", "esc": "quote \" and {"}`, got)
}

func TestExtractJSONObjectNoObject(t *testing.T) {
	_, err := extractJSONObject("no structured data here")
	assert.ErrorIs(t, err, errNoJSONObject)

	_, err = extractJSONObject(`{"never": "closed"`)
	assert.ErrorIs(t, err, errNoJSONObject)
}
