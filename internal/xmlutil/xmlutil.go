// Package xmlutil holds the small set of XML helpers the UPnP wire formats
// need. Device descriptions and SOAP bodies are narrow, fixed shapes, so the
// helpers scrape by substring rather than running a conforming parser.
package xmlutil

import "strings"

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

var unescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

// Escape replaces the five XML special characters with their named entities.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape reverses Escape. &amp; is decoded last so that double-escaped
// content is not over-decoded.
func Unescape(s string) string {
	return unescaper.Replace(s)
}

// Between returns the text between the first occurrence of openTag and the
// following closeTag. The boolean is false when either landmark is missing.
func Between(s, openTag, closeTag string) (string, bool) {
	start := strings.Index(s, openTag)
	if start == -1 {
		return "", false
	}
	start += len(openTag)
	end := strings.Index(s[start:], closeTag)
	if end == -1 {
		return "", false
	}
	return s[start : start+end], true
}

// ChildValues walks the direct simple children of an element body and returns
// a name to text mapping. Only attribute-less leaf elements are collected;
// the walk stops at the parent's closing tag. Tolerant of whitespace between
// elements.
func ChildValues(body string) map[string]string {
	values := make(map[string]string)
	pos := 0
	for pos < len(body) {
		tagStart := strings.IndexByte(body[pos:], '<')
		if tagStart == -1 {
			break
		}
		tagStart += pos
		if strings.HasPrefix(body[tagStart:], "</") {
			break
		}
		tagEnd := strings.IndexByte(body[tagStart:], '>')
		if tagEnd == -1 {
			break
		}
		tagEnd += tagStart

		name := body[tagStart+1 : tagEnd]
		if i := strings.IndexAny(name, " \t\r\n"); i != -1 {
			name = name[:i]
		}
		if name == "" || name[0] == '?' || name[0] == '!' {
			pos = tagEnd + 1
			continue
		}
		if strings.HasSuffix(body[tagStart:tagEnd], "/") {
			// Self-closing element decodes as empty text.
			values[strings.TrimSuffix(name, "/")] = ""
			pos = tagEnd + 1
			continue
		}

		closeTag := "</" + name + ">"
		closePos := strings.Index(body[tagEnd+1:], closeTag)
		if closePos == -1 {
			pos = tagEnd + 1
			continue
		}
		values[name] = body[tagEnd+1 : tagEnd+1+closePos]
		pos = tagEnd + 1 + closePos + len(closeTag)
	}
	return values
}
