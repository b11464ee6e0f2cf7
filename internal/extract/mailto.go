package extract

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// mailtoAddresses returns the recipients of every <a href="mailto:..."> in
// doc, in document order. Percent-encoding is undone so "info%40firm.com"
// is found even though it never appears as plain text.
func mailtoAddresses(doc string) []string {
	var out []string
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return out
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					out = append(out, parseMailto(string(val))...)
				}
				if !more {
					break
				}
			}
		}
	}
}

func parseMailto(href string) []string {
	href = strings.TrimSpace(href)
	if len(href) < len("mailto:") || !strings.EqualFold(href[:len("mailto:")], "mailto:") {
		return nil
	}
	target := href[len("mailto:"):]
	if i := strings.IndexByte(target, '?'); i >= 0 {
		target = target[:i]
	}
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}

	var out []string
	for _, addr := range strings.Split(target, ",") {
		if addr = strings.TrimSpace(addr); strings.Contains(addr, "@") {
			out = append(out, addr)
		}
	}
	return out
}
