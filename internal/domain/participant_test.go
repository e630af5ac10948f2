package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeIdentity(t *testing.T) {
	assert.Equal(t, Identity("Alice__ab12"), ComposeIdentity("Alice", "ab12"))
}

func TestNewSuffix(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s := NewSuffix()
		assert.Len(t, s, SuffixLength)
		for _, r := range s {
			assert.Contains(t, suffixAlphabet, string(r))
		}
		seen[s] = true
	}
	// 100 draws from 36^4 values colliding down to a handful would mean a
	// broken generator.
	assert.Greater(t, len(seen), 90)
}

func TestRandomParticipantName(t *testing.T) {
	name := RandomParticipantName()
	assert.True(t, strings.HasPrefix(name, "guest-"))
	assert.NotEqual(t, name, RandomParticipantName())
}

func TestValidServerURL(t *testing.T) {
	assert.True(t, ValidServerURL("wss://meet.example.com"))
	assert.True(t, ValidServerURL("https://meet.example.com:443/path"))

	assert.False(t, ValidServerURL(""))
	assert.False(t, ValidServerURL("<your-livekit-url>"))
	assert.False(t, ValidServerURL("wss://your-project.livekit.cloud"))
	assert.False(t, ValidServerURL("meet.example.com")) // not absolute
}
