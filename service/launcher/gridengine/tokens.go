package gridengine

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes (unique; start at 1 to avoid clash with parsly.EOF).
const (
	tWhitespace = iota + 1
	tYourJob
	tNumber
	tFloat
	tQuotedName
	tSubmitted
	tStateLetters
	tField
)

var (
	whitespaceToken = parsly.NewToken(tWhitespace, "WS", matcher.NewWhiteSpace())

	yourJobToken   = parsly.NewToken(tYourJob, "YourJob", matcher.NewFragment("Your job"))
	numberToken    = parsly.NewToken(tNumber, "Number", &digitsMatcher{})
	floatToken     = parsly.NewToken(tFloat, "Float", &floatMatcher{})
	quotedToken    = parsly.NewToken(tQuotedName, "QuotedName", &quotedNameMatcher{})
	submittedToken = parsly.NewToken(tSubmitted, "Submitted", matcher.NewFragment("has been submitted"))

	stateToken = parsly.NewToken(tStateLetters, "State", &stateMatcher{})
	fieldToken = parsly.NewToken(tField, "Field", &fieldMatcher{})
)

// digitsMatcher matches a run of decimal digits.
type digitsMatcher struct{}

func (m *digitsMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		if input[i] < '0' || input[i] > '9' {
			break
		}
		matched++
	}
	return matched
}

// floatMatcher matches digits with an optional fraction, e.g. 0.55500.
type floatMatcher struct{}

func (m *floatMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	matched := 0
	seenDot := false
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		c := input[i]
		if c >= '0' && c <= '9' {
			matched++
			continue
		}
		if c == '.' && !seenDot && matched > 0 {
			seenDot = true
			matched++
			continue
		}
		break
	}
	return matched
}

// quotedNameMatcher matches ("name") including the parentheses and quotes.
type quotedNameMatcher struct{}

func (m *quotedNameMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	if pos+4 > cursor.InputSize || input[pos] != '(' || input[pos+1] != '"' {
		return 0
	}
	for i := pos + 2; i < cursor.InputSize-1; i++ {
		if input[i] == '"' && input[i+1] == ')' {
			return i + 2 - pos
		}
	}
	return 0
}

// stateMatcher matches grid-engine state letters (qw, r, Eqw, dr, t, hqw...).
type stateMatcher struct{}

func (m *stateMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		c := input[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			matched++
			continue
		}
		break
	}
	return matched
}

// fieldMatcher matches any run of non-whitespace characters.
type fieldMatcher struct{}

func (m *fieldMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		c := input[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			break
		}
		matched++
	}
	return matched
}
