package hunt

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const (
	startCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	qrAlphabet        = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var startCodePattern = regexp.MustCompile(`^[A-Z0-9]{4,10}$`)

// NormalizeCode trims and upper-cases start and unlock codes.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateStartCode returns a six character join token without ambiguous
// characters (no I, O, 0, 1).
func GenerateStartCode() string {
	return randomString(startCodeAlphabet, 6)
}

// GenerateQRID returns a location token of the form QR-<round>-<8 chars>.
func GenerateQRID(roundNumber int) string {
	return fmt.Sprintf("QR-%d-%s", roundNumber, randomString(qrAlphabet, 8))
}

func randomString(alphabet string, n int) string {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("reading random bytes: %v", err))
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}
