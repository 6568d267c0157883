// Package sanitize coerces free-text model completions into valid JSON.
//
// Each repair pass targets one observed failure mode and never fails on its
// own; only the final validation can reject the text.
package sanitize

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	blockCommentRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// MalformedResponseError reports text that is still not valid JSON after
// every repair pass.
type MalformedResponseError struct {
	Text   string
	Offset int64
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e == nil || e.Err == nil {
		return "malformed model response"
	}
	if e.Offset > 0 {
		return fmt.Sprintf("malformed model response: invalid json at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("malformed model response: invalid json: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Pass is a single total text transformation.
type Pass struct {
	Name  string
	Apply func(string) string
}

// Passes lists the repair passes in the order Clean applies them. Fence
// stripping must stay first.
var Passes = []Pass{
	{Name: "strip_fences", Apply: StripFences},
	{Name: "strip_block_comments", Apply: StripBlockComments},
	{Name: "strip_line_comments", Apply: StripLineComments},
	{Name: "normalize_percent_point", Apply: NormalizePercentPoint},
	{Name: "strip_trailing_commas", Apply: StripTrailingCommas},
}

// Sanitize runs every repair pass and validates the result. The returned
// error is always a *MalformedResponseError.
func Sanitize(raw string) (string, error) {
	text := Clean(raw)
	if err := Validate(text); err != nil {
		return "", err
	}
	return text, nil
}

// Clean applies the repair passes without validating.
func Clean(raw string) string {
	text := raw
	for _, p := range Passes {
		text = p.Apply(text)
	}
	return text
}

func Validate(text string) error {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		me := &MalformedResponseError{Text: text, Err: err}
		var se *json.SyntaxError
		if errors.As(err, &se) {
			me.Offset = se.Offset
		}
		return me
	}
	return nil
}

func StripFences(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func StripBlockComments(s string) string {
	if !strings.Contains(s, "/*") {
		return s
	}
	return blockCommentRe.ReplaceAllString(s, "")
}

// StripLineComments truncates each line at the first `//` that occurs
// outside a double-quoted string and drops trailing whitespace.
func StripLineComments(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return strings.Join(lines, "\n")
}

type scanState int

const (
	stateNormal scanState = iota
	stateInString
	stateEscapePending
)

func stripLineComment(line string) string {
	state := stateNormal
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch state {
		case stateEscapePending:
			state = stateInString
		case stateInString:
			switch c {
			case '\\':
				state = stateEscapePending
			case '"':
				state = stateNormal
			}
		default:
			if c == '"' {
				state = stateInString
				continue
			}
			if c == '/' && i+1 < len(line) && line[i+1] == '/' {
				return strings.TrimRightFunc(line[:i], unicode.IsSpace)
			}
		}
	}
	return strings.TrimRightFunc(line, unicode.IsSpace)
}

// NormalizePercentPoint rewrites the percentage-point marker `%p` to `%`
// when it ends a word, e.g. "29.7%p" becomes "29.7%".
func NormalizePercentPoint(s string) string {
	if !strings.Contains(s, "%p") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], "%p") {
			rest := s[i+2:]
			next, _ := utf8.DecodeRuneInString(rest)
			if rest == "" || !isWordRune(next) {
				b.WriteByte('%')
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func StripTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}
