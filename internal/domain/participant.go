// Package domain contains entities without logic, just meta-data
// and the small identity rules shared by the token and session layers.
package domain

import (
	"crypto/rand"
)

// SuffixLength is the length of the random postfix appended to a display
// name to disambiguate participants sharing the same name.
const SuffixLength = 4

// suffixAlphabet is lowercase base-36: URL-safe, cookie-safe and readable
// in participant lists.
const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Identity is the composite participant identity `{displayName}__{suffix}`.
type Identity string

// ComposeIdentity builds the composite identity from a display name and a
// postfix. The double underscore keeps the display name recoverable.
func ComposeIdentity(displayName, suffix string) Identity {
	return Identity(displayName + "__" + suffix)
}

// NewSuffix returns a fresh random participant postfix.
func NewSuffix() string {
	return randomString(SuffixLength)
}

// RandomParticipantName generates a guest name when the user supplied none.
func RandomParticipantName() string {
	return "guest-" + randomString(6)
}

func randomString(n int) string {
	buf := make([]byte, n)
	// crypto/rand.Read never fails on supported platforms.
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return string(buf)
}
