// Package publish converts curated content into the formats the downstream
// publishing targets require and delivers it to them: the cloud backend's
// article store and the CMS draft queue.
package publish

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// The CMS editor strips classes and stylesheets, so every element carries its
// presentation inline.
var styles = map[string]string{
	"h1":         `font-size: 22px; font-weight: bold; color: #1a1a1a; margin: 30px 0 20px 0; line-height: 1.4;`,
	"h2":         `font-size: 18px; font-weight: bold; color: #2c3e50; margin: 28px 0 15px 0; line-height: 1.4; border-bottom: 1px solid #eee; padding-bottom: 8px;`,
	"h3":         `font-size: 16px; font-weight: bold; color: #34495e; margin: 20px 0 12px 0;`,
	"p":          `font-size: 16px; color: #333; line-height: 1.8; margin: 16px 0; text-align: justify;`,
	"strong":     `font-weight: bold; color: #1a1a1a;`,
	"blockquote": `border-left: 3px solid #3498db; padding: 12px 20px; margin: 20px 0; background: #f8f9fa; color: #555; font-style: italic;`,
	"li":         `font-size: 16px; color: #333; line-height: 1.8; margin: 8px 0;`,
	"hr":         `border: none; border-top: 1px solid #ddd; margin: 30px 0;`,
	"a":          `color: #3498db; text-decoration: none;`,
}

var (
	boldRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	linkRe    = regexp.MustCompile(`\[(.+?)\]\((.+?)\)`)
	italicRe  = regexp.MustCompile(`\*([^*]+)\*`)
	orderedRe = regexp.MustCompile(`^\d+\. `)
)

// textPolicy strips any raw HTML smuggled inside the markdown source before
// the converter builds its own markup.
var textPolicy = bluemonday.StrictPolicy()

// VoteBlock is the optional call-to-action appended after the article body.
type VoteBlock struct {
	URL      string
	Question string
}

// MarkdownToHTML converts the subset of markdown the drafts use (headings,
// bold, italics, links, blockquotes, unordered/ordered lists, horizontal
// rules) into presentational HTML. Unknown markdown passes through as plain
// paragraph text.
func MarkdownToHTML(md string, vote *VoteBlock) string {
	var parts []string
	var listItems []string

	flushList := func() {
		if len(listItems) == 0 {
			return
		}
		parts = append(parts, fmt.Sprintf(`<ul style="padding-left: 20px; margin: 16px 0;">%s</ul>`, strings.Join(listItems, "")))
		listItems = nil
	}

	for _, line := range strings.Split(md, "\n") {
		stripped := strings.TrimSpace(line)

		switch {
		case stripped == "---":
			flushList()
			parts = append(parts, fmt.Sprintf(`<hr style="%s">`, styles["hr"]))

		case strings.HasPrefix(stripped, ">"):
			flushList()
			quote := emphasize(strings.TrimSpace(strings.TrimPrefix(stripped, ">")))
			parts = append(parts, fmt.Sprintf(`<blockquote style="%s">%s</blockquote>`, styles["blockquote"], quote))

		case strings.HasPrefix(stripped, "- "), orderedRe.MatchString(stripped):
			item := strings.TrimPrefix(stripped, "- ")
			if item == stripped {
				item = orderedRe.ReplaceAllString(stripped, "")
			}
			listItems = append(listItems, fmt.Sprintf(`<li style="%s">%s</li>`, styles["li"], emphasize(item)))

		case strings.HasPrefix(stripped, "### "):
			flushList()
			parts = append(parts, fmt.Sprintf(`<h3 style="%s">%s</h3>`, styles["h3"], clean(stripped[4:])))

		case strings.HasPrefix(stripped, "## "):
			flushList()
			parts = append(parts, fmt.Sprintf(`<h2 style="%s">%s</h2>`, styles["h2"], clean(stripped[3:])))

		case strings.HasPrefix(stripped, "# "):
			flushList()
			parts = append(parts, fmt.Sprintf(`<h1 style="%s">%s</h1>`, styles["h1"], clean(stripped[2:])))

		case stripped != "":
			flushList()
			parts = append(parts, fmt.Sprintf(`<p style="%s">%s</p>`, styles["p"], paragraph(stripped)))
		}
	}
	flushList()

	if vote != nil && vote.URL != "" && vote.Question != "" {
		parts = append(parts, voteSection(vote))
	}

	return strings.Join(parts, "\n")
}

// WrapArticle wraps converted body HTML in the publication shell.
func WrapArticle(body string) string {
	return fmt.Sprintf(`<section style="padding: 0; margin: 0; background: #fff;">
<p style="text-align: center; color: #999; font-size: 13px; margin: 0 0 20px 0; letter-spacing: 0.1em;">MIND OUR TIMES</p>
%s
<section style="margin-top: 40px; padding-top: 20px; border-top: 1px solid #eee; text-align: center;">
<p style="font-size: 13px; color: #999; margin: 0;">追踪时代思想脉搏</p>
</section>
</section>`, body)
}

// Title extracts the article title from the first markdown line.
func Title(md string) string {
	line, _, _ := strings.Cut(md, "\n")
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "# "))
}

func clean(s string) string {
	return textPolicy.Sanitize(s)
}

// emphasize handles bold only, for list items and quotes.
func emphasize(s string) string {
	return boldRe.ReplaceAllString(clean(s), `<strong style="font-weight:bold;">$1</strong>`)
}

// paragraph handles bold, links, then italics, matching the draft subset.
func paragraph(s string) string {
	out := clean(s)
	out = boldRe.ReplaceAllString(out, fmt.Sprintf(`<strong style="%s">$1</strong>`, styles["strong"]))
	out = linkRe.ReplaceAllString(out, fmt.Sprintf(`<a style="%s" href="$2">$1</a>`, styles["a"]))
	out = italicRe.ReplaceAllString(out, `<em>$1</em>`)
	return out
}

func voteSection(v *VoteBlock) string {
	return fmt.Sprintf(`<section style="margin: 40px 0; padding: 24px; background: linear-gradient(135deg, #fafafa 0%%, #f5f5f5 100%%); border-radius: 8px; text-align: center;">
<p style="font-size: 14px; color: #666; margin: 0 0 12px 0; letter-spacing: 0.1em;">📊 今日之问</p>
<p style="font-size: 18px; font-weight: bold; color: #1a1a1a; margin: 0 0 20px 0; line-height: 1.5;">%s</p>
<a href="%s" style="display: inline-block; padding: 12px 32px; background: #1a1a1a; color: white; text-decoration: none; border-radius: 4px; font-size: 15px;">参与投票 →</a>
<p style="font-size: 12px; color: #999; margin: 16px 0 0 0;">投票后查看实时结果</p>
</section>`, clean(v.Question), v.URL)
}
