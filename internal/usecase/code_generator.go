package usecase

import (
	"crypto/rand"
	"io"
	"regexp"
	"strings"
)

// Subscription codes are four hyphen-separated groups of four characters
// from a 36-character alphabet, e.g. 7KQ2-M9X1-AAAA-0042. 36^16 is just
// over 82 bits of entropy, so guessing is hopeless but collisions against
// the store are still checked by the caller.

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var codePattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// generateCode creates one secure random code in canonical form.
func generateCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}
	return string(buf[0:4]) + "-" + string(buf[4:8]) + "-" + string(buf[8:12]) + "-" + string(buf[12:16]), nil
}

// NormalizeCode canonicalizes client input to uppercase and reports whether
// it matches the wire format. Malformed input must be rejected here, before
// any store lookup.
func NormalizeCode(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	return code, codePattern.MatchString(code)
}
