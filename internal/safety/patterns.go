package safety

import "regexp"

// PIIReason is the single reason contributed when any personal-information
// pattern matches, regardless of how many matches there are.
const PIIReason = "Contains personal identifying information"

// Pattern defines a personal-information detection pattern.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
}

// PIIPatterns returns the built-in personal-information patterns.
func PIIPatterns() []Pattern {
	return []Pattern{
		{
			Name:  "Government ID",
			Regex: regexp.MustCompile(`\b\d{3}[- ]\d{2}[- ]\d{4}\b`),
		},
		{
			Name:  "Phone Number",
			Regex: regexp.MustCompile(`\(?\b\d{3}\)?[-.\s]\d{3}[-.\s]?\d{4}\b`),
		},
		{
			Name:  "Email Address",
			Regex: regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
		},
		{
			Name:  "Sensitive Mention",
			Regex: regexp.MustCompile(`(?i)\b(home address|personal information|private details)\b`),
		},
	}
}

// BoundaryRule defines a professional-boundary phrase inappropriate for
// teacher-parent or teacher-student communication.
type BoundaryRule struct {
	Name   string // key into the paraphrase table
	Regex  *regexp.Regexp
	Reason string
	Edit   string
}

// BoundaryRules returns the built-in professional-boundary rules.
func BoundaryRules() []BoundaryRule {
	return []BoundaryRule{
		{
			Name:   "student_relationship",
			Regex:  regexp.MustCompile(`(?i)(personal\s+relationship\s+with\s+(a\s+|your\s+|my\s+)?(student|child)|meet\s+(me\s+)?outside\s+of\s+school|my\s+favorite\s+student)`),
			Reason: "Discusses a personal relationship with a student",
			Edit:   "Keep the focus on classroom progress and school activities",
		},
		{
			Name:   "political_views",
			Regex:  regexp.MustCompile(`(?i)(vote\s+for|political\s+(views?|opinions?)|support\s+(the\s+)?(democrats?|republicans?))`),
			Reason: "Shares political opinions in a school communication",
			Edit:   "Remove political commentary",
		},
		{
			Name:   "religious_views",
			Regex:  regexp.MustCompile(`(?i)(attend\s+(my\s+|our\s+)?church|religious\s+(views?|beliefs?)|join\s+(us|me)\s+in\s+prayer)`),
			Reason: "Shares religious opinions in a school communication",
			Edit:   "Remove religious commentary",
		},
		{
			Name:   "undisclosed_discipline",
			Regex:  regexp.MustCompile(`(?i)(keep\s+this\s+between\s+us|do(\s+not|n't)\s+tell\s+(the\s+)?(principal|administration|anyone))`),
			Reason: "References undisclosed disciplinary action",
			Edit:   "Route disciplinary matters through official school channels",
		},
		{
			Name:   "social_media_contact",
			Regex:  regexp.MustCompile(`(?i)add\s+me\s+on\s+(facebook|instagram|snapchat|tiktok|whatsapp)`),
			Reason: "Invites contact through personal social media",
			Edit:   "Use official school communication channels",
		},
	}
}

// PositiveTerms returns constructive terms that raise the confidence score.
func PositiveTerms() []string {
	return []string{
		"great", "excellent", "wonderful", "progress", "improvement",
		"proud", "appreciate", "thank you", "impressive", "growth",
	}
}

// NegativeTerms returns pejorative terms that lower the confidence score.
func NegativeTerms() []string {
	return []string{
		"stupid", "lazy", "hopeless", "terrible", "worst",
		"useless", "failure", "annoying", "awful", "disaster",
	}
}
