// Package source holds the upstream market-data adapters. Each adapter knows
// one provider's URL scheme, how to tell a usable payload from a degraded
// one, and how to map that payload into domain rows.
package source

import (
	"strings"

	"github.com/tidwall/gjson"
)

// nonEmptyArray reports whether res is a JSON array with at least one element.
func nonEmptyArray(res gjson.Result) bool {
	return res.IsArray() && len(res.Array()) > 0
}

func joinURL(base string, elem ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(elem, "/")
}
