package persona

import "encoding/json"

// Metadata is the JSON payload folded into token and dispatch metadata.
type Metadata struct {
	Type        string `json:"type"`
	AvatarID    string `json:"avatarId,omitempty"`
	PersonaName string `json:"personaName,omitempty"`
}

// DispatchMetadata renders the metadata string for an optional persona:
// {"type":"avatar","avatarId":...,"personaName":...} when one is selected,
// {"type":"avatar"} otherwise.
func DispatchMetadata(p *Persona) string {
	m := Metadata{Type: "avatar"}
	if p != nil {
		m.AvatarID = p.ID
		m.PersonaName = p.Name
	}
	// Marshal of a flat string struct cannot fail.
	b, _ := json.Marshal(m)
	return string(b)
}
