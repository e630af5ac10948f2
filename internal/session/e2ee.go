package session

import (
	"crypto/sha256"
	"net/url"

	"golang.org/x/crypto/pbkdf2"
)

// Key-derivation parameters for passphrase-based frame encryption keys.
const (
	keySalt       = "LKFrameEncryptionKey"
	keyIterations = 100_000
	keyLength     = 16
)

// DecodePassphrase reverses the URL-fragment encoding the share link uses.
// Returns the input unchanged if it was not percent-encoded.
func DecodePassphrase(fragment string) string {
	decoded, err := url.PathUnescape(fragment)
	if err != nil {
		return fragment
	}
	return decoded
}

// DeriveKey stretches a shared passphrase into AES-GCM key material for the
// media engine's frame encryptor.
func DeriveKey(passphrase string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(keySalt), keyIterations, keyLength, sha256.New)
}
