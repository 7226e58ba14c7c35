// Package markup cleans captured job-description HTML for storage and display.
package markup

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
)

var (
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()

	mdConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
)

// Sanitize strips scripts, styles, event handlers and other active content,
// keeping basic formatting markup.
func Sanitize(html string) string {
	return ugc.Sanitize(html)
}

// PlainText removes all markup and collapses whitespace.
func PlainText(html string) string {
	return strings.Join(strings.Fields(strict.Sanitize(html)), " ")
}

// Excerpt sanitizes html and truncates it to at most n runes.
func Excerpt(html string, n int) string {
	return Truncate(Sanitize(html), n)
}

// Markdown renders html as markdown. On conversion failure it falls back to
// plain text so callers always have something to show.
func Markdown(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	md, err := mdConverter.ConvertString(Sanitize(html))
	if err != nil {
		return PlainText(html)
	}
	return strings.TrimSpace(md)
}

// Truncate cuts s to at most n runes. n <= 0 means no limit.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
