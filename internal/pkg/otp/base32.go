package otp

import "strings"

const base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// EncodeBase32 encodes raw bytes with the RFC 4648 alphabet and no padding.
func EncodeBase32(raw []byte) string {
	var sb strings.Builder
	sb.Grow((len(raw)*8 + 4) / 5)

	var buffer uint32
	bits := 0
	for _, b := range raw {
		buffer = buffer<<8 | uint32(b)
		bits += 8
		for bits >= 5 {
			sb.WriteByte(base32Alphabet[(buffer>>(bits-5))&0x1f])
			bits -= 5
		}
	}

	if bits > 0 {
		sb.WriteByte(base32Alphabet[(buffer<<(5-bits))&0x1f])
	}

	return sb.String()
}

// DecodeBase32 decodes a Base32 secret leniently.
//
// Input is case-insensitive. Whitespace and trailing '=' are stripped and any
// other character outside the alphabet is skipped. Only complete bytes are
// emitted; leftover bits are discarded.
func DecodeBase32(secret string) []byte {
	cleaned := strings.TrimRight(strings.Join(strings.Fields(secret), ""), "=")
	cleaned = strings.ToUpper(cleaned)

	out := make([]byte, 0, len(cleaned)*5/8)

	var buffer uint32
	bits := 0
	for i := 0; i < len(cleaned); i++ {
		idx := strings.IndexByte(base32Alphabet, cleaned[i])
		if idx < 0 {
			continue
		}

		buffer = buffer<<5 | uint32(idx)
		bits += 5
		if bits >= 8 {
			out = append(out, byte(buffer>>(bits-8)))
			bits -= 8
		}
	}

	return out
}
