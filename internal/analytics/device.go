// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package analytics

import "strings"

// ClassifyDevice buckets a request's User-Agent into the coarse device
// categories the query engine's device breakdown reports. This dimension
// has no backing field in the event schema this package was grounded on;
// it is captured here, at event-construction time, from the HTTP layer's
// User-Agent header rather than from the search request body itself.
func ClassifyDevice(userAgent string) string {
	if userAgent == "" {
		return "unknown"
	}
	ua := strings.ToLower(userAgent)

	switch {
	case containsAny(ua, "bot", "crawler", "spider", "curl/", "wget/", "python-requests", "postmanruntime"):
		return "bot"
	case containsAny(ua, "ipad", "tablet", "kindle", "playbook"):
		return "tablet"
	case containsAny(ua, "iphone", "ipod", "android", "mobile", "windows phone"):
		return "mobile"
	default:
		return "desktop"
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
