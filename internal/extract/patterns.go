package extract

import "regexp"

// citationPatterns are tried in order; the first pattern with any match wins.
var citationPatterns = []*regexp.Regexp{
	// Supreme Court reporters
	regexp.MustCompile(`\b\d{1,3}\s+U\.\s?S\.\s+\d{1,4}\b`),
	regexp.MustCompile(`\b\d{1,3}\s+S\.\s?Ct\.\s+\d{1,4}\b`),
	regexp.MustCompile(`\b\d{1,3}\s+L\.\s?Ed\.(?:\s?2d)?\s+\d{1,4}\b`),
	// Federal reporters
	regexp.MustCompile(`\b\d{1,4}\s+F\.(?:\s?(?:2d|3d|4th))?\s+\d{1,4}\b`),
	regexp.MustCompile(`\b\d{1,4}\s+F\.\s?Supp\.(?:\s?(?:2d|3d))?\s+\d{1,4}\b`),
	// Regional reporters
	regexp.MustCompile(`\b\d{1,4}\s+(?:A|N\.E|N\.W|P|So|S\.E|S\.W)\.(?:\s?(?:2d|3d))?\s+\d{1,5}\b`),
	// State-specific reporters
	regexp.MustCompile(`\b\d{1,4}\s+Cal\.\s?Rptr\.(?:\s?(?:2d|3d))?\s+\d{1,5}\b`),
	regexp.MustCompile(`\b\d{1,4}\s+N\.Y\.S\.(?:\s?(?:2d|3d))?\s+\d{1,5}\b`),
	regexp.MustCompile(`\b\d{1,4}\s+Ill\.\s?Dec\.\s+\d{1,5}\b`),
	// Vendor citations for unreported decisions
	regexp.MustCompile(`\b\d{4}\s+WL\s+\d{1,9}\b`),
	regexp.MustCompile(`\b\d{4}\s+(?:[A-Z][A-Za-z.]*\s+){0,3}LEXIS\s+\d{1,9}\b`),
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.?\s+\d{1,2},?\s+\d{4}\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/(?:\d{4}|\d{2})\b`),
}

var courtPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bSupreme Court(?: of (?:the )?[A-Z][a-z]+(?: [A-Z][a-z]+)?)?`),
	regexp.MustCompile(`\bCourt of (?:Criminal |Civil )?Appeals(?: (?:for|of) the [A-Z][A-Za-z]*(?: [A-Z][a-z]+)*)?`),
	regexp.MustCompile(`\b(?:United States )?District Court(?: for the (?:[A-Z][a-z]+ )*District of [A-Z][a-z]+(?: [A-Z][a-z]+)?)?`),
	regexp.MustCompile(`\b(?:Bankruptcy|Tax|Superior|Chancery) Court\b`),
	regexp.MustCompile(`\b\d{1,2}(?:st|nd|rd|th) Cir\.`),
}

// FindCitation returns the first reporter citation in text, or "".
func FindCitation(text string) string {
	return firstMatch(citationPatterns, text)
}

// FindDate returns the first month-name or slash date in text, or "".
func FindDate(text string) string {
	return firstMatch(datePatterns, text)
}

// FindCourt returns the first court name in text, or "".
func FindCourt(text string) string {
	return firstMatch(courtPatterns, text)
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}
