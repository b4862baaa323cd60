package request

import (
	"crypto/rand"
	"fmt"
	"time"
)

// maxCodeAttempts bounds the insert retry loop in CreateRequest. Each attempt
// draws a fresh 3-letter suffix, so repeated collisions within one timestamp
// second are vanishingly unlikely.
const maxCodeAttempts = 5

const codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateCode produces a candidate request code of the form
// REQ-YYYYMMDDHHMMSS-AAA. Uniqueness is not guaranteed here; the database
// unique index on requests.code is the arbiter, and CreateRequest retries
// with a fresh candidate on a duplicate-key error.
func GenerateCode(now time.Time) (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("request: generate code: %w", err)
	}
	suffix := []byte{
		codeLetters[int(b[0])%len(codeLetters)],
		codeLetters[int(b[1])%len(codeLetters)],
		codeLetters[int(b[2])%len(codeLetters)],
	}
	return fmt.Sprintf("REQ-%s-%s", now.Format("20060102150405"), suffix), nil
}
