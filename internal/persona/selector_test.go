package persona

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	personas := Catalog()
	require.Len(t, personas, 3)
	for _, p := range personas {
		assert.NotEmpty(t, p.ID)
		assert.NotEmpty(t, p.Name)
	}

	// Callers get a copy, not the catalog itself.
	personas[0].Name = "mutated"
	assert.NotEqual(t, "mutated", Catalog()[0].Name)
}

func TestSelector(t *testing.T) {
	s := NewSelector()

	_, err := s.Confirm()
	assert.ErrorIs(t, err, ErrNothingHighlighted)

	require.Error(t, s.Highlight("no-such-id"))
	assert.Nil(t, s.Highlighted())

	id := Catalog()[1].ID
	require.NoError(t, s.Highlight(id))
	p, err := s.Confirm()
	require.NoError(t, err)
	assert.Equal(t, "Cara", p.Name)

	assert.Nil(t, s.Skip())
	assert.Nil(t, s.Highlighted())
}

func TestDispatchMetadata(t *testing.T) {
	assert.JSONEq(t, `{"type":"avatar"}`, DispatchMetadata(nil))

	p, ok := Find("2fbdec6f-86fd-47d6-8bcc-e8a69270e75b")
	require.True(t, ok)

	var m Metadata
	require.NoError(t, json.Unmarshal([]byte(DispatchMetadata(p)), &m))
	assert.Equal(t, "avatar", m.Type)
	assert.Equal(t, p.ID, m.AvatarID)
	assert.Equal(t, "Pablo", m.PersonaName)
}
