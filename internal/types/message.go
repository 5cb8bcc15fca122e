package types

import "time"

const maxVariations = 3

// ComposedMessage is the output of a successful composition. The caller owns
// it once returned; the orchestrator keeps only the bounded history copy.
type ComposedMessage struct {
	ID        string             `json:"id"`
	Text      string             `json:"text"`
	Request   CompositionRequest `json:"request"`
	CreatedAt time.Time          `json:"created_at"`
	Favorited bool               `json:"favorited"`

	// Variations holds up to the 3 most recent alternative renderings.
	Variations []string `json:"variations,omitempty"`
}

// AddVariation records a variation, silently dropping the oldest once the
// retention cap is reached.
func (m *ComposedMessage) AddVariation(text string) {
	m.Variations = append(m.Variations, text)
	if len(m.Variations) > maxVariations {
		m.Variations = m.Variations[len(m.Variations)-maxVariations:]
	}
}
