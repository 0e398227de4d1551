// Package dedup decides whether a failure has already been reported.
package dedup

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/text/unicode/norm"
)

// Signature is the normalized text of a failure, used only for comparison.
type Signature struct {
	text string
}

func (s Signature) Text() string { return s.text }

// Len is the length in runes, the unit similarity is measured in.
func (s Signature) Len() int { return utf8.RuneCountInString(s.text) }

func (s Signature) Empty() bool { return s.text == "" }

// MaxSignatureRunes bounds a signature so edit distances stay well inside
// the comparison's uint16 range and quadratic cost stays small. Longer text
// keeps its last MaxSignatureRunes runes, where build failures are reported.
const MaxSignatureRunes = 4096

func bounded(text string) Signature {
	if n := utf8.RuneCountInString(text); n > MaxSignatureRunes {
		skip := n - MaxSignatureRunes
		for i := range text {
			if skip == 0 {
				text = text[i:]
				break
			}
			skip--
		}
	}
	return Signature{text: text}
}

const (
	PlaceholderTimestamp = "<TIMESTAMP>"
	PlaceholderDate      = "<DATE>"
	PlaceholderTime      = "<TIME>"
	PlaceholderSHA       = "<SHA>"
	PlaceholderPath      = "<PATH>"
	PlaceholderID        = "<ID>"
)

type replacement struct {
	re   *regexp.Regexp
	repl string
}

// Applied in order: timestamps before bare dates and times, paths before
// numbers so a numeric directory does not split a path.
var volatile = []replacement{
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?(?:Z|[+-]\d{2}:?\d{2})?`), PlaceholderTimestamp},
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), PlaceholderDate},
	{regexp.MustCompile(`\b\d{2}:\d{2}:\d{2}(?:\.\d+)?\b`), PlaceholderTime},
	{regexp.MustCompile(`\b[0-9a-f]{40}\b`), PlaceholderSHA},
	{regexp.MustCompile(`(^|[\s'"(=:\[,])(?:/[\w.@+~-]+)+/([\w.@+~-]+)`), "${1}" + PlaceholderPath + "/${2}"},
	{regexp.MustCompile(`\b\d{5,}(?:\.\d+)?\b`), PlaceholderID},
}

var spaces = regexp.MustCompile(`[ \t]+`)

// Normalize builds a Signature from free text. Volatile tokens (timestamps,
// epoch values, numeric identifiers, commit hashes and the directory part of
// absolute paths) become placeholders, ANSI sequences are removed, runs of
// blanks collapse and empty lines are dropped. The result is bounded to
// MaxSignatureRunes.
func Normalize(text string) Signature {
	text = norm.NFC.String(ansi.Strip(text))

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(spaces.ReplaceAllString(line, " "))
		if line == "" {
			continue
		}
		for _, r := range volatile {
			line = r.re.ReplaceAllString(line, r.repl)
		}
		// keeps the text safe to embed in an HTML comment
		line = strings.ReplaceAll(line, signatureClose, "- ->")
		lines = append(lines, line)
	}
	return bounded(strings.Join(lines, "\n"))
}

// SignatureOf normalizes an issue's title and body, leaving out an embedded
// signature block.
func SignatureOf(title, body string) Signature {
	return Normalize(title + "\n" + stripSignatureBlock(body))
}

const (
	signatureOpen  = "<!-- gha-triage:signature"
	signatureClose = "-->"
)

// EmbedSignature renders sig as an HTML comment that can be appended to an
// issue body without being displayed.
func EmbedSignature(sig Signature) string {
	return signatureOpen + "\n" + sig.text + "\n" + signatureClose
}

// ExtractSignature returns the signature embedded in body, if any.
func ExtractSignature(body string) (Signature, bool) {
	start := strings.Index(body, signatureOpen)
	if start < 0 {
		return Signature{}, false
	}
	rest := body[start+len(signatureOpen):]
	end := strings.Index(rest, signatureClose)
	if end < 0 {
		return Signature{}, false
	}
	return bounded(strings.Trim(rest[:end], "\r\n")), true
}

func stripSignatureBlock(body string) string {
	start := strings.Index(body, signatureOpen)
	if start < 0 {
		return body
	}
	end := strings.Index(body[start:], signatureClose)
	if end < 0 {
		return body
	}
	return body[:start] + body[start+end+len(signatureClose):]
}
