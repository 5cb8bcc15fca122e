package compose

import (
	"strings"

	"github.com/af-corp/scribe/internal/types"
)

// variationTags nudge the rhetorical skeleton so successive variations of the
// same message read slightly differently.
var variationTags = []string{
	"(follow-up)",
	"(second draft)",
	"(alternate wording)",
}

// Variation composes an alternate rendering of an already-composed message by
// re-running composition with a tagged topic, and records it on the message.
// The message retains only its 3 most recent variations.
func (c *Composer) Variation(msg *types.ComposedMessage) (string, error) {
	req := msg.Request
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return "", ErrEmptyTopic
	}
	tag := variationTags[len(msg.Variations)%len(variationTags)]
	req.Topic = topic + " " + tag

	text, err := c.Compose(req)
	if err != nil {
		return "", err
	}
	msg.AddVariation(text)
	return text, nil
}
