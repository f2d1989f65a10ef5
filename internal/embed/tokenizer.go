package embed

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// BERT-style special token ids.
const (
	clsTokenID = 101
	sepTokenID = 102

	// firstWordID keeps hashed word ids clear of the special-token range.
	firstWordID = 1000
	vocabSize   = 30000
)

// WordHashTokenizer maps lowercase words to ids by hashing. It does not
// need a vocabulary file, which keeps the ONNX backend self-contained.
type WordHashTokenizer struct {
	MaxTokens int
}

// Encode returns input_ids, attention_mask and token_type_ids, each padded
// to MaxTokens. The sequence is [CLS] words... [SEP]; words past the limit
// are dropped.
func (t WordHashTokenizer) Encode(text string) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	maxTokens := t.MaxTokens
	if maxTokens < 2 {
		maxTokens = DefaultMaxTokens
	}

	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsTokenID
	attentionMask[0] = 1

	pos := 1
	for _, word := range splitWords(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = wordID(word)
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos] = sepTokenID
	attentionMask[pos] = 1

	return inputIDs, attentionMask, tokenTypeIDs
}

func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func wordID(word string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(word))
	return int64(firstWordID + h.Sum32()%(vocabSize-firstWordID))
}
