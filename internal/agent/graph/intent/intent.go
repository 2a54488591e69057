// Package intent classifies whether a question asks for the report to be
// delivered by email. Both the rewrite and report nodes route on this
// classification, so there is exactly one pattern set; nodes must never grow
// private copies that can drift apart.
package intent

import (
	"regexp"
)

// emailPatterns is the authoritative pattern set for email-intent detection.
// Matching is case-insensitive and anchored on word boundaries so that, for
// example, "mailing list trends" does not classify as a delivery request.
var emailPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(send|email|mail)\s+(me|to\s+me|the\s+report)\b`),
	regexp.MustCompile(`(?i)\b(report|analysis|data)\s+(to\s+)?(my\s+)?email\b`),
	regexp.MustCompile(`(?i)\bemail\s+(me|the\s+report|it)\b`),
	regexp.MustCompile(`(?i)\bsend\s+(it|the\s+report|this)\s+(to\s+)?(my\s+)?email\b`),
}

var addressPattern = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)

// IsEmailRequest reports whether the question asks for email delivery.
func IsEmailRequest(question string) bool {
	for _, p := range emailPatterns {
		if p.MatchString(question) {
			return true
		}
	}
	return false
}

// ExtractAddress returns the first email address embedded in the text, or an
// empty string when there is none.
func ExtractAddress(text string) string {
	return addressPattern.FindString(text)
}
