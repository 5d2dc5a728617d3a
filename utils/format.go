package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// NormalizeCountryName cleans up an admin-entered country name: trims
// whitespace, collapses internal runs of spaces and title-cases the result,
// so "  south   KOREA " becomes "South Korea".
func NormalizeCountryName(name string) string {
	fields := strings.Fields(name)
	return titleCaser.String(strings.Join(fields, " "))
}
