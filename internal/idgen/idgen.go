// Package idgen generates identifiers for ledger artifacts: random UUIDs
// for op/packet/failure/record IDs, and short deterministic content IDs
// for human-facing conflict/slice labels, adapted from the teacher's
// base36 hash-ID scheme (internal/idgen.EncodeBase36).
package idgen

import (
	"crypto/sha256"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// base36Alphabet is the character set for base36 encoding (0-9, a-z).
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// New returns a random UUID string, used for op_id, packet_id, failure_id,
// and witness record_id.
func New() string {
	return uuid.NewString()
}

// EncodeBase36 converts data to a base36 string of the given length,
// left-padding with zeros and truncating to the least-significant digits
// if data encodes to more characters than requested.
func EncodeBase36(data []byte, length int) string {
	num := new(big.Int).SetBytes(data)
	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}
	var sb strings.Builder
	for i := len(chars) - 1; i >= 0; i-- {
		sb.WriteByte(chars[i])
	}
	str := sb.String()
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}
	if len(str) > length {
		str = str[len(str)-length:]
	}
	return str
}

// ShortContentID derives a short, human-scannable base36 ID from content
// (e.g. a conflict's or a slice's identity hash), prefixed with prefix.
func ShortContentID(prefix, content string, length int) string {
	sum := sha256.Sum256([]byte(content))
	return prefix + "-" + EncodeBase36(sum[:8], length)
}
