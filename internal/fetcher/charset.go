package fetcher

import (
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// decodeBody converts body to UTF-8. The Content-Type charset wins; without
// one the encoding is sniffed from BOMs and <meta> tags.
func decodeBody(body []byte, contentType string) string {
	var enc encoding.Encoding
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if label := strings.TrimSpace(params["charset"]); label != "" {
			if e, err := htmlindex.Get(label); err == nil {
				enc = e
			}
		}
	}
	if enc == nil {
		if utf8.Valid(body) {
			return string(body)
		}
		enc, _, _ = charset.DetermineEncoding(body, contentType)
	}

	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return string(body)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(out)
}
