package contact

import "regexp"

// spam and injection markers seen on the public contact form
var suspiciousPatterns = []*regexp.Regexp{
	// links in text fields
	regexp.MustCompile(`(?i)https?://`),
	// script fragments
	regexp.MustCompile(`(?i)<script|javascript:|data:`),
	// control chars, tab/newline excluded (multiline messages are fine)
	regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]"),
}

const maxSameCharRun = 10

// IsSuspicious screens a submission before it reaches the database.
func IsSuspicious(req *NewMessageRequest) bool {
	for _, field := range []string{req.FullName, req.Email, req.CompanyName, req.Message} {
		if field == "" {
			continue
		}
		for _, pattern := range suspiciousPatterns {
			if pattern.MatchString(field) {
				return true
			}
		}
		if hasLongCharRun(field) {
			return true
		}
	}
	return false
}

func hasLongCharRun(s string) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
			if run > maxSameCharRun {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}
