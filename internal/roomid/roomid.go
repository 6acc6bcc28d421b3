// Package roomid generates room identifiers: a UUIDv7 encoded as a
// 26-character lower-case Crockford base32 string (the TypeID suffix format).
// Identifiers sort by creation time.
package roomid

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Base32 alphabet used by TypeID (Crockford's base32)
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length of an encoded identifier.
const Length = 26

// Generate creates a new room ID.
func Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("failed to generate room id: " + err.Error())
	}
	return Encode(id)
}

// GenerateFrom creates a room ID drawing its random bits from r. Used in
// tests to make the random portion reproducible.
func GenerateFrom(r io.Reader) (string, error) {
	id, err := uuid.NewV7FromReader(r)
	if err != nil {
		return "", fmt.Errorf("generate room id: %w", err)
	}
	return Encode(id), nil
}

// Encode encodes a UUID as 26 base32 characters. The 128 bits are treated as
// a 130-bit value with two leading zero bits, so the first character is
// always in 0-7.
func Encode(id uuid.UUID) string {
	var out [Length]byte
	for i := range out {
		var v byte
		for b := 0; b < 5; b++ {
			v = v<<1 | bit(id, i*5+b-2)
		}
		out[i] = alphabet[v]
	}
	return string(out[:])
}

// Decode reverses Encode.
func Decode(s string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := Validate(s); err != nil {
		return id, err
	}
	for i := 0; i < Length; i++ {
		v := strings.IndexByte(alphabet, s[i])
		for b := 0; b < 5; b++ {
			k := i*5 + b - 2
			if k < 0 {
				continue
			}
			if v&(1<<(4-b)) != 0 {
				id[k/8] |= 1 << (7 - k%8)
			}
		}
	}
	return id, nil
}

func bit(id uuid.UUID, k int) byte {
	if k < 0 {
		return 0
	}
	return (id[k/8] >> (7 - k%8)) & 1
}

// Validate checks if a room ID is valid (26 characters, valid base32)
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("room ID must be exactly %d characters, got %d", Length, len(id))
	}

	if id[0] > '7' {
		return fmt.Errorf("room ID first character must be 0-7, got %c", id[0])
	}

	for i := 0; i < len(id); i++ {
		if strings.IndexByte(alphabet, id[i]) < 0 {
			return fmt.Errorf("invalid character %c at position %d", id[i], i)
		}
	}

	return nil
}
