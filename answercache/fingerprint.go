package answercache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// NormalizeQuestion canonicalizes a question for fingerprinting:
// case-folded, whitespace-collapsed, trimmed.
func NormalizeQuestion(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}

// Fingerprint generates the deterministic cache key for a (game,
// question) pair.
// Format: qa:<gameID>:<hash>
// where hash is the first 16 hex characters of
// SHA-256(gameID NUL normalized question).
func Fingerprint(gameID, question string) string {
	h := sha256.New()
	h.Write([]byte(gameID))
	h.Write([]byte{0})
	h.Write([]byte(NormalizeQuestion(question)))
	sum := h.Sum(nil)

	return fmt.Sprintf("qa:%s:%s", gameID, hex.EncodeToString(sum[:8]))
}
