package domain

import (
	"errors"
	"strings"

	"github.com/halcyonlabs/keywarden/pkg/cryptox"
	"github.com/halcyonlabs/keywarden/pkg/idx"
)

// An API key is a 128-character string that embeds the key's own id and its
// owner's user id, so presenting the key alone is enough to route the
// verification request. Construction: concatenate keyID then userID into a
// 64-character identity string, generate 64 characters of lowercase
// alphanumeric noise, and interleave them character by character (identity at
// even positions, noise at odd). The noise exists only to keep the id pair
// from being structurally obvious; it is discarded on decode.
//
// Decoding only extracts routing ids. It does not authenticate; the hash
// comparison against the stored credential is the authentication step.
const (
	APIKeyLength      = 2 * APIKeyNoiseLength
	APIKeyNoiseLength = 2 * idx.Length
)

var ErrMalformedAPIKey = errors.New("domain: malformed api key")

// EncodeAPIKey builds the wire form of an API key from its two ids using
// fresh random noise.
func EncodeAPIKey(keyID, userID idx.ID) (string, error) {
	noise, err := cryptox.RandomString(APIKeyNoiseLength, cryptox.CharsetLowerAlphanumeric)
	if err != nil {
		return "", err
	}
	return encodeAPIKeyWithNoise(keyID, userID, noise)
}

func encodeAPIKeyWithNoise(keyID, userID idx.ID, noise string) (string, error) {
	if !validAPIKeyID(string(keyID)) || !validAPIKeyID(string(userID)) {
		return "", ErrMalformedAPIKey
	}
	if len(noise) != APIKeyNoiseLength {
		return "", ErrMalformedAPIKey
	}

	identity := string(keyID) + string(userID)

	var b strings.Builder
	b.Grow(APIKeyLength)
	for i := range APIKeyNoiseLength {
		b.WriteByte(identity[i])
		b.WriteByte(noise[i])
	}
	return b.String(), nil
}

// DecodeAPIKey recovers the (keyID, userID) pair from the wire form. The key
// id occupies even positions 0..62, the user id even positions 64..126.
// Malformed input (wrong length or non-alphanumeric ids) is rejected instead
// of silently extracting garbage.
func DecodeAPIKey(raw string) (keyID, userID idx.ID, err error) {
	if len(raw) != APIKeyLength {
		return "", "", ErrMalformedAPIKey
	}

	var key, user [idx.Length]byte
	for i := range idx.Length {
		key[i] = raw[2*i]
		user[i] = raw[2*(idx.Length+i)]
	}

	if !validAPIKeyID(string(key[:])) || !validAPIKeyID(string(user[:])) {
		return "", "", ErrMalformedAPIKey
	}
	return idx.ID(key[:]), idx.ID(user[:]), nil
}

// The codec treats ids as opaque fixed-length alphanumeric strings rather
// than enforcing the hex form idx generates, so foreign ids round-trip.
func validAPIKeyID(id string) bool {
	if len(id) != idx.Length {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}
