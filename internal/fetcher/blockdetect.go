package fetcher

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot response detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockRobotCheck BlockType = "robot_check"
	BlockJSShell    BlockType = "js_shell"
)

// challengeMaxBytes bounds the body size inspected for challenge markers.
// Challenge pages are small; full detail pages can mention any word.
const challengeMaxBytes = 64 << 10

// DetectBlock checks a response for signs of anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}

	if len(body) > challengeMaxBytes {
		return false, BlockNone
	}
	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") {
		return true, BlockCloudflare
	}

	// Amazon-hosted sites answer scrapers with a "Robot Check" page.
	if strings.Contains(lower, "<title>robot check</title>") ||
		strings.Contains(lower, "api-services-support@amazon.com") {
		return true, BlockRobotCheck
	}

	if strings.Contains(lower, "captcha") {
		return true, BlockCaptcha
	}

	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
