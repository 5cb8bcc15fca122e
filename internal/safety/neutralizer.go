package safety

import "github.com/af-corp/scribe/internal/config"

// Neutralizer rewrites flagged spans: personal-information matches become a
// fixed redaction token, boundary matches become a neutral paraphrase from
// the template table. It runs as an independent on-demand operation and is
// only chained into composition when the caller opts in to auto-protect.
type Neutralizer struct {
	scanner   *Scanner
	cfg       func() config.SafetyConfig
	templates func() *config.TemplatesConfig
}

func NewNeutralizer(scanner *Scanner, cfg func() config.SafetyConfig, templates func() *config.TemplatesConfig) *Neutralizer {
	return &Neutralizer{scanner: scanner, cfg: cfg, templates: templates}
}

// Neutralize returns the text with every personal-information match replaced
// by the redaction token and every boundary match replaced by its paraphrase.
// Boundaries without a paraphrase entry are left unmodified.
func (n *Neutralizer) Neutralize(text string) string {
	token := n.cfg().RedactionToken
	for _, p := range n.scanner.pii {
		text = p.Regex.ReplaceAllString(text, token)
	}

	paraphrases := n.templates().Boundaries
	for _, r := range n.scanner.boundaries {
		para, ok := paraphrases[r.Name]
		if !ok {
			continue
		}
		text = r.Regex.ReplaceAllString(text, para)
	}
	return text
}
