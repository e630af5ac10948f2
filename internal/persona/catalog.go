// Package persona holds the static avatar catalog and the metadata shape
// that flows into capability tokens and agent dispatches.
package persona

// Persona is a named, optionally-imaged avatar identity an agent can assume.
type Persona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
}

var catalog = []Persona{
	{
		ID:          "2fbdec6f-86fd-47d6-8bcc-e8a69270e75b",
		Name:        "Pablo",
		Description: "Friendly and professional",
	},
	{
		ID:          "30fa96d0-26c4-4e55-94a0-517025942e18",
		Name:        "Cara",
		Description: "Warm and approachable",
	},
	{
		ID:          "aa5d6abd-416f-4dd4-a123-b5b29bf1644a",
		Name:        "Leo",
		Description: "Energetic and engaging",
	},
}

// Catalog returns a copy of the fixed persona catalog.
func Catalog() []Persona {
	out := make([]Persona, len(catalog))
	copy(out, catalog)
	return out
}

// Find looks a persona up by ID.
func Find(id string) (*Persona, bool) {
	for i := range catalog {
		if catalog[i].ID == id {
			p := catalog[i]
			return &p, true
		}
	}
	return nil, false
}
