package scraper

import "strings"

// jsOnlyMarkers are phrases storefronts serve when the real content is
// assembled entirely by client-side scripts.
var jsOnlyMarkers = []string{
	"doesn't work properly without javascript",
	"does not work properly without javascript",
	"enable javascript to continue",
	"please enable javascript",
	"you need to enable javascript to run this app",
	"checking your browser",
	"cf-browser-verification",
}

// RequiresRendering reports whether an HTML body is a script-only shell
// that cannot be interpreted without a browser. Scrapers that hit such a
// page must fail with NewRenderingError rather than return zero items
// indistinguishable from "no matches".
func RequiresRendering(body string) bool {
	lowered := strings.ToLower(body)

	for _, marker := range jsOnlyMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}

	// Very small bodies that hide everything behind noscript or a meta
	// refresh are shells as well.
	if len(body) < 2000 {
		if strings.Contains(lowered, "<noscript") && strings.Contains(lowered, "javascript") {
			return true
		}
		if strings.Contains(lowered, `meta http-equiv="refresh"`) {
			return true
		}
	}

	return false
}
