// Package token implements the proxy's reversible URL obfuscation.
//
// Wire format: two hex characters of random salt followed by an even-length
// hex payload, one ciphertext byte per percent-encoded source character. The
// XOR stream is (key ^ salt) repeated. This is anti-scraping obfuscation, not
// access control: anyone holding the key can invert it.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"net/url"
)

// Codec masks and unmasks URLs with a fixed key byte.
type Codec struct {
	key byte
}

func NewCodec(key byte) *Codec {
	return &Codec{key: key}
}

// Mask encodes u into an opaque hex token. The salt byte is drawn fresh per
// call, so masking the same URL twice yields different tokens that both
// unmask to the identical URL.
func (c *Codec) Mask(u string) string {
	var salt [1]byte
	rand.Read(salt[:])

	encoded := url.QueryEscape(u)
	out := make([]byte, 1+len(encoded))
	out[0] = salt[0]
	for i := 0; i < len(encoded); i++ {
		out[i+1] = encoded[i] ^ c.key ^ salt[0]
	}
	return hex.EncodeToString(out)
}

// Unmask inverts Mask. It returns "" for anything malformed: non-hex input,
// odd-length payload, missing salt, or an invalid percent-encoding after
// decryption. Callers treat "" as an invalid token.
func (c *Codec) Unmask(tok string) string {
	if len(tok) < 4 || len(tok)%2 != 0 {
		return ""
	}
	raw, err := hex.DecodeString(tok)
	if err != nil {
		return ""
	}
	salt := raw[0]
	decoded := make([]byte, len(raw)-1)
	for i, b := range raw[1:] {
		decoded[i] = b ^ c.key ^ salt
	}
	u, err := url.QueryUnescape(string(decoded))
	if err != nil {
		return ""
	}
	return u
}
