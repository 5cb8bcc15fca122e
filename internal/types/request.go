package types

import "time"

// Tone selects the rhetorical opener of a composed message.
type Tone string

const (
	ToneWarm         Tone = "warm"
	ToneProfessional Tone = "professional"
	ToneConcise      Tone = "concise"
	ToneSupportive   Tone = "supportive"
)

func ParseTone(s string) (Tone, bool) {
	switch Tone(s) {
	case ToneWarm, ToneProfessional, ToneConcise, ToneSupportive:
		return Tone(s), true
	default:
		return "", false
	}
}

// Language selects the greeting and closing phrase tables.
type Language string

const (
	LangEnglish Language = "en"
	LangSpanish Language = "es"
	LangFrench  Language = "fr"
	LangChinese Language = "zh"
)

func ParseLanguage(s string) (Language, bool) {
	switch Language(s) {
	case LangEnglish, LangSpanish, LangFrench, LangChinese:
		return Language(s), true
	default:
		return "", false
	}
}

// Format is the delivery channel a message is shaped for.
type Format string

const (
	FormatEmail Format = "email"
	FormatSMS   Format = "sms"
)

func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case FormatEmail, FormatSMS:
		return Format(s), true
	default:
		return "", false
	}
}

// WordCap returns the hard ceiling on words in the final message text.
func (f Format) WordCap() int {
	if f == FormatSMS {
		return 80
	}
	return 130
}

// LengthRange returns the allowed target-length bounds for the format.
func (f Format) LengthRange() (min, max int) {
	if f == FormatSMS {
		return 45, 70
	}
	return 90, 120
}

// ClampLength forces a requested target length into the format's range.
// Out-of-range values are clamped, never rejected.
func (f Format) ClampLength(n int) int {
	min, max := f.LengthRange()
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// CompositionRequest is the canonical internal representation of a message
// composition request. Topic is the only required field.
type CompositionRequest struct {
	Topic        string   `json:"topic"`
	StudentName  string   `json:"student_name,omitempty"`
	Positives    string   `json:"positives,omitempty"`
	Concern      string   `json:"concern,omitempty"`
	NextSteps    string   `json:"next_steps,omitempty"`
	Extra        string   `json:"extra,omitempty"`
	Tone         Tone     `json:"tone"`
	TargetLength int      `json:"target_length"`
	Language     Language `json:"language"`
	Format       Format   `json:"format"`

	// Internal tracking (set by the service layer)
	RequestID  string    `json:"-"`
	Identity   string    `json:"-"`
	ReceivedAt time.Time `json:"-"`
}

// Canonicalize fills enum defaults and clamps the target length. It never
// rejects a request; topic validation belongs to the composer.
func (r *CompositionRequest) Canonicalize() {
	if _, ok := ParseTone(string(r.Tone)); !ok {
		r.Tone = ToneProfessional
	}
	if _, ok := ParseLanguage(string(r.Language)); !ok {
		r.Language = LangEnglish
	}
	if _, ok := ParseFormat(string(r.Format)); !ok {
		r.Format = FormatEmail
	}
	r.TargetLength = r.Format.ClampLength(r.TargetLength)
}
