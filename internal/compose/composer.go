package compose

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/af-corp/scribe/internal/config"
	"github.com/af-corp/scribe/internal/normalize"
	"github.com/af-corp/scribe/internal/types"
)

// ErrEmptyTopic is returned when a request has no usable topic. A message
// about nothing is not composed.
var ErrEmptyTopic = errors.New("topic is required")

// Composer assembles a structured request into a short professional message
// using the template tables. All tone and language behavior is table lookup;
// adding either is a config change.
type Composer struct {
	templates func() *config.TemplatesConfig

	mu       sync.Mutex
	denySrc  *config.TemplatesConfig
	denylist []denyPattern
}

type denyPattern struct {
	regex       *regexp.Regexp
	replacement string
}

func New(templates func() *config.TemplatesConfig) *Composer {
	return &Composer{templates: templates}
}

// Compose renders the request into final message text. The pipeline is:
// greeting and opener lookup, paragraph assembly, denylist rewrite, length
// shaping (pad then truncate at a word boundary), closing phrase, normalize.
// The denylist rewrite runs before truncation so a replacement cannot itself
// be truncated away.
func (c *Composer) Compose(req types.CompositionRequest) (string, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return "", ErrEmptyTopic
	}
	req.Canonicalize()
	t := c.templates()

	greeting := t.Greeting(string(req.Language))
	opener := t.Opener(string(req.Tone))
	closing := t.Closing(string(req.Language))

	topic := strings.TrimSpace(req.Topic)
	if name := strings.TrimSpace(req.StudentName); name != "" {
		topic = name + "'s " + topic
	}

	blocks := []string{fmt.Sprintf("%s %s.", opener, topic)}
	for _, optional := range []string{req.Positives, req.Concern, req.NextSteps, req.Extra} {
		if s := strings.TrimSpace(optional); s != "" {
			blocks = append(blocks, ensureSentence(s))
		}
	}

	body := greeting + "\n\n" + strings.Join(blocks, "\n\n")
	body = c.applyDenylist(t, body)
	body = padToTarget(body, closing, t.PaddingFor(string(req.Language)), req.TargetLength)
	body = truncateWords(body, req.Format.WordCap()-wordCount(closing))

	return normalize.Text(body + "\n\n" + closing), nil
}

// applyDenylist replaces every denylisted term with its neutral synonym,
// case-insensitively and on word boundaries.
func (c *Composer) applyDenylist(t *config.TemplatesConfig, body string) string {
	for _, d := range c.compiledDenylist(t) {
		body = d.regex.ReplaceAllString(body, d.replacement)
	}
	return body
}

// compiledDenylist caches compiled patterns per templates snapshot so a hot
// reload picks up new entries without recompiling on every request.
func (c *Composer) compiledDenylist(t *config.TemplatesConfig) []denyPattern {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.denySrc == t {
		return c.denylist
	}
	compiled := make([]denyPattern, 0, len(t.Denylist))
	for _, entry := range t.Denylist {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(entry.Term) + `\b`)
		if err != nil {
			continue
		}
		compiled = append(compiled, denyPattern{regex: re, replacement: entry.Replacement})
	}
	c.denySrc = t
	c.denylist = compiled
	return compiled
}

// padToTarget appends stock sentences until the draft (including the closing
// that will follow) reaches the target word length, or the padding runs out.
func padToTarget(body, closing string, padding []string, target int) string {
	count := wordCount(body) + wordCount(closing)
	var extra []string
	for _, sentence := range padding {
		if count >= target {
			break
		}
		extra = append(extra, sentence)
		count += wordCount(sentence)
	}
	if len(extra) == 0 {
		return body
	}
	return body + "\n\n" + strings.Join(extra, " ")
}

// truncateWords cuts the text after the budget-th word and appends an
// ellipsis marker. It never splits a word.
func truncateWords(s string, budget int) string {
	if budget < 1 {
		budget = 1
	}
	if wordCount(s) <= budget {
		return s
	}
	count := 0
	inWord := false
	for i, r := range s {
		if unicode.IsSpace(r) {
			if inWord {
				count++
				inWord = false
				if count == budget {
					return s[:i] + "..."
				}
			}
		} else {
			inWord = true
		}
	}
	return s
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// ensureSentence appends terminal punctuation when the block lacks it, so
// joined paragraphs normalize cleanly.
func ensureSentence(s string) string {
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}
