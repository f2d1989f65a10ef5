package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordHashTokenizer_Encode(t *testing.T) {
	// Given: a tokenizer with room for 6 tokens
	tok := WordHashTokenizer{MaxTokens: 6}

	// When: encoding two words
	ids, mask, types := tok.Encode("Hello, world")

	// Then: the sequence is [CLS] hello world [SEP] followed by padding
	assert.Len(t, ids, 6)
	assert.Equal(t, int64(clsTokenID), ids[0])
	assert.Equal(t, int64(sepTokenID), ids[3])
	assert.Equal(t, []int64{1, 1, 1, 1, 0, 0}, mask)
	assert.Equal(t, make([]int64, 6), types)
	assert.Equal(t, wordID("hello"), ids[1])
}

func TestWordHashTokenizer_Truncates(t *testing.T) {
	tok := WordHashTokenizer{MaxTokens: 4}

	ids, mask, _ := tok.Encode("one two three four five")

	assert.Equal(t, int64(sepTokenID), ids[3])
	assert.Equal(t, []int64{1, 1, 1, 1}, mask)
}

func TestWordHashTokenizer_Empty(t *testing.T) {
	ids, mask, _ := WordHashTokenizer{}.Encode("")

	assert.Len(t, ids, DefaultMaxTokens)
	assert.Equal(t, int64(sepTokenID), ids[1])
	assert.Equal(t, int64(2), mask[0]+mask[1]+mask[2])
}

func TestWordID_RangeAndCase(t *testing.T) {
	for _, w := range splitWords("Alpha BETA gamma") {
		id := wordID(w)
		assert.GreaterOrEqual(t, id, int64(firstWordID))
		assert.Less(t, id, int64(vocabSize))
	}
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, splitWords("Alpha BETA gamma"))
}
