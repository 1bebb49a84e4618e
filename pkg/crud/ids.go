package crud

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

var idPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// NewID returns a 24 character hexadecimal identifier made of a 4-byte
// big-endian unix timestamp followed by 8 random bytes. Identifiers sort
// roughly by creation time.
func NewID() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[:4], uint32(time.Now().Unix()))
	if _, err := rand.Read(b[4:]); err != nil {
		// crypto/rand only fails when the OS entropy source is unusable
		panic("crud: reading random bytes: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// IsID reports whether s has the shape of an identifier.
func IsID(s string) bool {
	return idPattern.MatchString(s)
}

// NormalizeID trims s and lowercases it, the form NewID produces. IsID
// accepts either case, so lookups go through here first.
func NormalizeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
