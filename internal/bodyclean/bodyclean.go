// Package bodyclean strips reply quoting and signatures from inbound
// message bodies before they reach the ledger and the classifier.
package bodyclean

import (
	"regexp"
	"strings"
)

var (
	// Quoted-reply introductions; everything from the first match onward
	// belongs to an earlier message.
	quoteIntroRe  = regexp.MustCompile(`(?i)^On .{0,200}wrote:\s*$`)
	origMessageRe = regexp.MustCompile(`(?i)^-{2,}\s*Original Message\s*-{2,}\s*$`)
	forwardedRe   = regexp.MustCompile(`(?i)^-{2,}\s*Forwarded message\s*-{2,}`)
	fromHeaderRe  = regexp.MustCompile(`^From:\s`)
	separatorRe   = regexp.MustCompile(`^[-_=]{5,}\s*$`)
	quotedLineRe  = regexp.MustCompile(`^\s*>`)

	// Trailing signature markers
	sigDelimiterRe = regexp.MustCompile(`^--\s*$`)
	closingRe      = regexp.MustCompile(`(?i)^(regards|best regards|kind regards|warm regards|best|thanks|thank you|cheers|sincerely)\s*[,!.]?\s*$`)
	sentFromRe     = regexp.MustCompile(`(?i)^sent from\s`)

	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
)

// Clean returns the author's own text: quoted-reply blocks removed, trailing
// signature removed, runs of 3+ newlines collapsed to 2, and the result
// trimmed. An empty result means the message carried no original content.
func Clean(body string) string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")

	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if quoteIntroRe.MatchString(line) ||
			origMessageRe.MatchString(line) ||
			forwardedRe.MatchString(line) ||
			fromHeaderRe.MatchString(line) ||
			separatorRe.MatchString(line) {
			// Start of an embedded earlier message: drop the rest
			break
		}
		if quotedLineRe.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}

	kept = stripSignature(kept)

	cleaned := strings.Join(kept, "\n")
	cleaned = multiNewlineRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

// stripSignature cuts from the first signature marker to the end. A closing
// phrase only counts once some real content precedes it, so a message that
// is nothing but "Thanks," survives.
func stripSignature(lines []string) []string {
	seenContent := false
	for i, line := range lines {
		if sigDelimiterRe.MatchString(line) || sentFromRe.MatchString(line) {
			return lines[:i]
		}
		if closingRe.MatchString(line) && seenContent {
			return lines[:i]
		}
		if strings.TrimSpace(line) != "" {
			seenContent = true
		}
	}
	return lines
}
