package verification

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	// Alphabet is the set of characters a challenge is drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// ChallengeLength is the number of characters in a challenge.
	ChallengeLength = 6
)

// Challenge is the text a member must type back and its rendered image.
type Challenge struct {
	Text  string
	Image []byte
}

// Generator draws challenge texts uniformly, with replacement, from Alphabet.
type Generator struct {
	reader io.Reader
}

// NewGenerator creates a Generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{reader: rand.Reader}
}

// Generate returns a new ChallengeLength character text.
func (g *Generator) Generate() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	var b strings.Builder
	b.Grow(ChallengeLength)
	for range ChallengeLength {
		n, err := rand.Int(g.reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to draw challenge character: %w", err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Normalize converts a member's answer to the form challenges are compared in.
// Surrounding whitespace is dropped and letters are upper-cased.
func Normalize(answer string) string {
	return strings.ToUpper(strings.TrimSpace(answer))
}

// Matches reports whether the answer solves the challenge text.
func Matches(text, answer string) bool {
	return Normalize(answer) == text
}
