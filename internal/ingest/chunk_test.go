package ingest

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplit_Empty(t *testing.T) {
	assert.Nil(t, Split("", 10, 2))
	assert.Nil(t, Split(" \n\t ", 10, 2))
}

func TestSplit_ShortTextIsOneChunk(t *testing.T) {
	assert.Equal(t, []string{"hello world"}, Split("  hello world \n", 1000, 200))
}

func TestSplit_OverlapWithoutSpaces(t *testing.T) {
	assert.Equal(t, []string{"abcd", "defg", "ghij"}, Split("abcdefghij", 4, 1))
}

func TestSplit_PrefersWordBoundaries(t *testing.T) {
	assert.Equal(t, []string{"one two", "three four"}, Split("one two three four", 10, 0))
}

func TestSplit_NextChunkSkipsLeadingSpace(t *testing.T) {
	chunks := Split("alpha beta gamma delta epsilon", 12, 0)
	assert.Equal(t, []string{"alpha beta", "gamma delta", "epsilon"}, chunks)

	// With overlap the carried-over text still starts on a word.
	for _, c := range Split("aa bb cc dd ee ff gg hh", 8, 3) {
		assert.False(t, unicode.IsSpace([]rune(c)[0]), "chunk %q starts with space", c)
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 8)
	}
}

func TestSplit_CountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("é", 25)
	chunks := Split(text, 10, 0)
	assert.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 10)
		assert.True(t, utf8.ValidString(c))
	}
}

func TestSplit_InvalidOverlapIgnored(t *testing.T) {
	assert.Equal(t, []string{"abcd", "efgh"}, Split("abcdefgh", 4, 4))
	assert.Equal(t, []string{"abcd", "efgh"}, Split("abcdefgh", 4, -1))
}

func TestSplit_TinySizeTerminates(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Split("a b c", 1, 0))
}

func TestSplit_DefaultsCoverLongText(t *testing.T) {
	words := strings.Repeat("lorem ipsum dolor sit amet ", 200)
	chunks := Split(words, DefaultChunkSize, DefaultChunkOverlap)
	assert.Greater(t, len(chunks), 5)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), DefaultChunkSize)
	}
	// Consecutive chunks share text.
	tail := chunks[0][len(chunks[0])-50:]
	assert.Contains(t, chunks[1], strings.TrimSpace(tail))
}
