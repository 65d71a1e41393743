// Package randid generates short random identifiers for locally-created
// entities (highlights, pending notifications) before the server assigns
// a canonical id.
package randid

import (
	"crypto/rand"
	"math/big"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Generate returns a random lowercase alphanumeric string of the given length.
func Generate(length int) string {
	if length <= 0 {
		return ""
	}

	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failure is unrecoverable for id generation
			panic(err)
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b)
}
