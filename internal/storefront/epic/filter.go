package epic

import (
	"strings"

	"github.com/tidwall/gjson"
)

// category paths that mark a catalog entry as something other than a
// standalone game.
var extraCategories = map[string]struct{}{
	"software":       {},
	"digitalextras":  {},
	"plugins":        {},
	"plugins/engine": {},
	"addons":         {},
}

// isExtra reports whether a storefront catalog entry is not a top-level
// game: DLC and season content (anything pointing at a main game item),
// software, digital extras, plugins and add-ons, entries missing the
// applications category, and mobile-only releases.
func isExtra(detail gjson.Result) bool {
	hasApplications := false
	for _, category := range detail.Get("categories").Array() {
		path := category.Get("path").String()
		if path == "applications" {
			hasApplications = true
		}
		if _, ok := extraCategories[path]; ok {
			return true
		}
	}
	if !hasApplications {
		return true
	}
	if detail.Get("mainGameItem").Exists() {
		return true
	}

	platforms := detail.Get("releaseInfo.0.platform").Array()
	if len(platforms) > 0 && mobileOnly(platforms) {
		return true
	}
	return false
}

// mobileOnly reports whether every release platform is Android or iOS.
func mobileOnly(platforms []gjson.Result) bool {
	for _, p := range platforms {
		name := strings.ToLower(p.String())
		if !strings.Contains(name, "android") && !strings.Contains(name, "ios") {
			return false
		}
	}
	return true
}
