// Package normalize sanitizes raw generated markup: it strips fenced-code
// delimiters the model sometimes adds despite instructions, and wraps bare
// fragments into a complete printable document with the canonical
// stylesheet. Normalization is idempotent — a complete document passes
// through untouched.
package normalize

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Style parametrizes the canonical stylesheet of a wrapped document.
type Style struct {
	MainColor   string
	AccentColor string
	FontSize    int
}

var (
	fenceOpen  = regexp.MustCompile("(?i)^```html?\\n?")
	fenceClose = regexp.MustCompile("\\n?```$")

	h1Re     = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	styleRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// Clean strips one leading and one trailing code-fence marker (optional
// language tag, case-insensitive) and trims surrounding whitespace.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// IsCompleteDocument reports whether markup is already a standalone
// document (starts with a doctype or root element).
func IsCompleteDocument(markup string) bool {
	return strings.HasPrefix(markup, "<!DOCTYPE") || strings.HasPrefix(markup, "<html")
}

// Normalize cleans raw model output and, when the result is a fragment,
// wraps it in the canonical document shell. Running the result through
// Normalize again yields the same document.
func Normalize(raw string, st Style) string {
	markup := Clean(raw)
	if IsCompleteDocument(markup) {
		return markup
	}
	return wrap(markup, st)
}

// ExtractTitle returns the text of the first h1, with inner tags stripped.
// Documents without an h1 are "Sans titre".
func ExtractTitle(markup string) string {
	m := h1Re.FindStringSubmatch(markup)
	if m == nil {
		return "Sans titre"
	}
	title := strings.TrimSpace(tagRe.ReplaceAllString(m[1], ""))
	if title == "" {
		return "Sans titre"
	}
	return html.UnescapeString(title)
}

// ExtractText converts markup to plain text for use as grounding context:
// style and script content is removed first, then tags, then whitespace is
// collapsed. The result is truncated to max characters.
func ExtractText(markup string, max int) string {
	s := styleRe.ReplaceAllString(markup, " ")
	s = scriptRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
	if runes := []rune(s); len(runes) > max {
		s = string(runes[:max])
	}
	return s
}

// Stylesheet returns the canonical CSS for the given style. The same text
// is embedded in the document-generation prompt so generated and wrapped
// documents render identically.
func Stylesheet(st Style) string {
	return fmt.Sprintf(`:root {
    --main-color: %s;
    --accent-color: %s;
    --text-color: #1a1a1a;
}
@page { size: A4 landscape; margin: 0; }
* { margin:0; padding:0; box-sizing:border-box; }
body { font-family:'Segoe UI',Arial,sans-serif; background:#444; color:var(--text-color); font-size:%dpx; -webkit-print-color-adjust:exact; print-color-adjust:exact; }
.page-landscape { width:29.7cm; height:21cm; margin:20px auto; background:white; display:flex; box-shadow:0 4px 20px rgba(0,0,0,0.2); }
.col-a5 { width:50%%; height:100%%; padding:1cm 1.2cm; border-right:1px dashed #ccc; overflow:hidden; }
.col-a5:last-child { border-right:none; }
h1 { font-size:1.4em; text-align:center; color:var(--main-color); border-bottom:3px solid var(--main-color); margin-bottom:20px; padding-bottom:5px; }
h2 { background:var(--main-color); color:white; padding:6px 12px; border-radius:4px; font-size:1.1em; margin:15px 0 8px 0; }
h3 { color:var(--main-color); border-bottom:1px solid #ddd; font-size:1em; margin-bottom:8px; padding-bottom:4px; }
p { margin-bottom:8px; line-height:1.5; }
ul, ol { padding-left:20px; margin-bottom:10px; }
li { margin-bottom:6px; line-height:1.4; }
.box { border:1px solid #ddd; border-radius:8px; padding:12px; margin-bottom:12px; }
.important { border-left:5px solid var(--main-color); background:#f0f7fb; padding:10px; margin-bottom:12px; }
.formula-box { background:#f4f4f4; text-align:center; padding:15px; font-weight:bold; border-radius:5px; margin:10px 0; border:1px solid #ccc; font-size:1.2em; }
.correction { background:#e8f8e8; border:1px solid #27ae60; border-radius:8px; padding:12px; margin-top:10px; }
.correction h3 { color:#27ae60; }
.question-block { background:#f9f9f9; border:1px solid #ddd; border-radius:8px; padding:12px; margin-bottom:12px; }
.question-block .question-num { font-weight:bold; color:var(--main-color); }
.synthesis-full { background:#fff4e5; border:1.5px solid var(--accent-color); padding:12px; border-radius:8px; margin-top:15px; }
.tag { font-weight:bold; text-decoration:underline; }
@media print { body{background:none;} .page-landscape{box-shadow:none;margin:0;page-break-after:always;} .page-landscape:last-child{page-break-after:auto;} }`,
		st.MainColor, st.AccentColor, st.FontSize)
}

func wrap(body string, st Style) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="UTF-8">
<style>
%s
</style>
</head>
<body>
%s
</body>
</html>`, Stylesheet(st), body)
}
