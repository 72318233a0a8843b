package catalogsync

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// blockTags break words apart when stripped
var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "ul": true, "ol": true,
	"tr": true, "td": true, "th": true, "table": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "hr": true, "img": true,
}

var (
	cssRule      = regexp.MustCompile(`[.#@]?[\w\-]+(\s*[,>]\s*[.#]?[\w\-]+)*\s*\{[^{}]*:[^{}]*\}`)
	markdownMark = regexp.MustCompile(`(\*\*|__|~~|` + "`" + `)`)
	boilerplate  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)note:\s*(due to|please allow|the real color)[^.]*\.?`),
		regexp.MustCompile(`(?i)please allow \d+(\s*-\s*\d+)?\s*(cm|mm|inch|inches)[^.]*\.?`),
		regexp.MustCompile(`(?i)due to the (different|difference)[^.]*(monitor|display|light)[^.]*\.?`),
	}
)

// NormalizeText turns supplier markup into plain text: style and script
// blocks are dropped, tags stripped, entities decoded, known boilerplate
// removed and whitespace collapsed.
func NormalizeText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	// the tokenizer already decodes entities in text tokens
	text := stripMarkup(s)
	text = cssRule.ReplaceAllString(text, " ")
	text = markdownMark.ReplaceAllString(text, "")
	for _, re := range boilerplate {
		text = re.ReplaceAllString(text, " ")
	}
	return collapseWhitespace(text)
}

// NormalizeName folds a product name for similarity comparison
func NormalizeName(s string) string {
	text := NormalizeText(s)
	text = width.Fold.String(text)
	text = cases.Fold().String(text)
	text = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, text)
	return collapseWhitespace(text)
}

func stripMarkup(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skipDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "style" || tag == "script" {
				skipDepth++
			}
			if blockTags[tag] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "style" || tag == "script") && skipDepth > 0 {
				skipDepth--
			}
			if blockTags[tag] {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
