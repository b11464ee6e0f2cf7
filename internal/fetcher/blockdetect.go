package fetcher

import (
	"net/http"
	"strings"
)

// BlockType names the kind of anti-bot wall a response presented.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockForbidden  BlockType = "forbidden"
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// jsShellMaxBytes bounds the size of a page considered an empty JS shell.
const jsShellMaxBytes = 2000

// DetectBlock classifies a response as an anti-bot wall. Successful pages are
// only flagged for interstitial challenges so that contact forms carrying a
// reCAPTCHA widget still count as content.
func DetectBlock(resp *http.Response, body []byte) BlockType {
	if resp == nil {
		return BlockNone
	}

	cloudflare := resp.Header.Get("Cf-Ray") != "" ||
		resp.Header.Get("Cf-Cache-Status") != "" ||
		strings.EqualFold(resp.Header.Get("Server"), "cloudflare")
	if cloudflare && (resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable) {
		return BlockCloudflare
	}

	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cf-challenge") {
		return BlockCloudflare
	}

	if resp.StatusCode >= 400 && (strings.Contains(lower, "captcha") || strings.Contains(lower, "are you a robot")) {
		return BlockCaptcha
	}

	if resp.StatusCode == http.StatusForbidden {
		return BlockForbidden
	}

	if resp.StatusCode < 300 && len(body) < jsShellMaxBytes &&
		strings.Contains(lower, "<noscript") && strings.Contains(lower, "enable javascript") {
		return BlockJSShell
	}

	return BlockNone
}
