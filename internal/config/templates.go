package config

// TemplatesConfig holds the data tables the composer and neutralizer draw
// from. Adding a language or tone is a config change, not a code change.
type TemplatesConfig struct {
	// Greetings and Closings are keyed by language code.
	Greetings map[string]string `yaml:"greetings"`
	Closings  map[string]string `yaml:"closings"`

	// Openers are keyed by tone.
	Openers map[string]string `yaml:"openers"`

	// Padding sentences are appended, in order, until a draft reaches its
	// target length. Keyed by language code.
	Padding map[string][]string `yaml:"padding"`

	// Denylist maps unprofessional terms to neutral synonyms.
	Denylist []DenyEntry `yaml:"denylist"`

	// Boundaries maps boundary rule names to neutral paraphrases used by the
	// neutralizer. Rules without an entry are left unmodified.
	Boundaries map[string]string `yaml:"boundaries"`
}

type DenyEntry struct {
	Term        string `yaml:"term"`
	Replacement string `yaml:"replacement"`
}

// Greeting returns the greeting for a language, falling back to English.
func (t *TemplatesConfig) Greeting(lang string) string {
	if g, ok := t.Greetings[lang]; ok {
		return g
	}
	return t.Greetings["en"]
}

// Closing returns the closing phrase for a language, falling back to English.
func (t *TemplatesConfig) Closing(lang string) string {
	if c, ok := t.Closings[lang]; ok {
		return c
	}
	return t.Closings["en"]
}

// Opener returns the opening clause for a tone, falling back to professional.
func (t *TemplatesConfig) Opener(tone string) string {
	if o, ok := t.Openers[tone]; ok {
		return o
	}
	return t.Openers["professional"]
}

// PaddingFor returns the padding sentences for a language, falling back to
// English.
func (t *TemplatesConfig) PaddingFor(lang string) []string {
	if p, ok := t.Padding[lang]; ok {
		return p
	}
	return t.Padding["en"]
}

func DefaultTemplates() *TemplatesConfig {
	return &TemplatesConfig{
		Greetings: map[string]string{
			"en": "Dear Parent,",
			"es": "Estimada familia:",
			"fr": "Chers parents,",
			"zh": "尊敬的家长：",
		},
		Closings: map[string]string{
			"en": "Thank you for your partnership in your child's education. Warm regards.",
			"es": "Gracias por su colaboración en la educación de su hijo. Un cordial saludo.",
			"fr": "Merci de votre collaboration dans l'éducation de votre enfant. Cordialement.",
			"zh": "感谢您对孩子教育的支持与配合。此致敬礼。",
		},
		Openers: map[string]string{
			"warm":         "I hope this note finds you and your family well! I wanted to take a moment to reach out and share a few thoughts about",
			"professional": "I am writing to keep you informed about an important matter concerning",
			"concise":      "A quick note about",
			"supportive":   "I want you to know that we are working together as a team, and today I would like to talk with you about",
		},
		Padding: map[string][]string{
			"en": {
				"Your child's growth matters a great deal to all of us here at school.",
				"Please know that my door is always open if you would like to talk through anything together.",
				"Small, consistent routines at home can make a meaningful difference in how the week goes.",
				"I will continue to watch closely and share updates with you as things develop in class.",
				"Every student moves at their own pace, and steady encouragement goes a long way.",
				"Feel free to reply to this message or reach out through the front office at any time.",
			},
			"es": {
				"El progreso de su hijo es muy importante para todos nosotros en la escuela.",
				"No dude en comunicarse conmigo si desea conversar sobre cualquier tema.",
				"Las rutinas constantes en casa pueden marcar una diferencia significativa cada semana.",
				"Seguiré observando de cerca y compartiré novedades a medida que avancemos en clase.",
				"Cada estudiante avanza a su propio ritmo, y el apoyo constante ayuda mucho.",
				"Puede responder a este mensaje o contactar a la oficina escolar en cualquier momento.",
			},
			"fr": {
				"Les progrès de votre enfant comptent beaucoup pour toute notre équipe scolaire.",
				"N'hésitez pas à me contacter si vous souhaitez échanger à ce sujet.",
				"Des routines régulières à la maison peuvent faire une vraie différence chaque semaine.",
				"Je continuerai à suivre la situation de près et je vous tiendrai informés.",
				"Chaque élève avance à son rythme, et des encouragements réguliers portent leurs fruits.",
				"Vous pouvez répondre à ce message ou joindre le secrétariat à tout moment.",
			},
			"zh": {
				"孩子的成长对我们学校的每一位老师都非常重要。",
				"如果您想进一步沟通，随时欢迎与我联系。",
				"在家保持稳定的学习习惯会带来明显的帮助。",
				"我会继续密切关注，并及时与您分享课堂上的最新情况。",
				"每个学生都有自己的节奏，持续的鼓励非常有价值。",
				"您可以直接回复本消息，或随时联系学校办公室。",
			},
		},
		Denylist: []DenyEntry{
			{Term: "lazy", Replacement: "not yet fully engaged"},
			{Term: "stupid", Replacement: "finding the material challenging"},
			{Term: "dumb", Replacement: "finding the material challenging"},
			{Term: "hopeless", Replacement: "facing a difficult stretch"},
			{Term: "careless", Replacement: "still building attention to detail"},
			{Term: "troublemaker", Replacement: "testing classroom expectations"},
			{Term: "a failure", Replacement: "working through setbacks"},
		},
		Boundaries: map[string]string{
			"student_relationship":   "I would like to set up a meeting to discuss your child's classroom experience.",
			"political_views":        "We keep classroom discussions neutral on civic topics.",
			"religious_views":        "We keep classroom discussions neutral on matters of belief.",
			"undisclosed_discipline": "I would like to schedule a conversation about a recent classroom incident.",
			// social_media_contact intentionally has no paraphrase; the
			// neutralizer leaves those spans unmodified.
		},
	}
}
