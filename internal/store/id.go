package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// ChunkID returns the content-addressed id of a chunk:
// hex(sha256(path "\n" index "\n" hex(sha256(text)))).
// Unchanged content at the same path and position always maps to the same
// id.
func ChunkID(path string, index int, text string) string {
	textHash := sha256.Sum256([]byte(text))

	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write([]byte(strconv.Itoa(index)))
	h.Write([]byte{'\n'})
	h.Write([]byte(hex.EncodeToString(textHash[:])))
	return hex.EncodeToString(h.Sum(nil))
}
