package publish

import (
	"strings"
	"testing"
)

func TestHeadingsAndParagraphs(t *testing.T) {
	got := MarkdownToHTML("# Top\n\n## Section\n\nBody text.", nil)
	for _, want := range []string{"<h1", ">Top</h1>", "<h2", ">Section</h2>", "<p", ">Body text.</p>"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
}

func TestInlineFormatting(t *testing.T) {
	got := MarkdownToHTML("A **bold** word, a [link](https://example.com), and *emphasis*.", nil)
	if !strings.Contains(got, ">bold</strong>") {
		t.Fatalf("bold not converted:\n%s", got)
	}
	if !strings.Contains(got, `href="https://example.com"`) || !strings.Contains(got, ">link</a>") {
		t.Fatalf("link not converted:\n%s", got)
	}
	if !strings.Contains(got, "<em>emphasis</em>") {
		t.Fatalf("italics not converted:\n%s", got)
	}
}

func TestListsFlushOnFollowingParagraph(t *testing.T) {
	got := MarkdownToHTML("- one\n- **two**\n\nafter", nil)
	if !strings.Contains(got, "<ul") {
		t.Fatalf("list not wrapped:\n%s", got)
	}
	ulEnd := strings.Index(got, "</ul>")
	after := strings.Index(got, ">after</p>")
	if ulEnd == -1 || after == -1 || ulEnd > after {
		t.Fatalf("list should close before the paragraph:\n%s", got)
	}
	if strings.Count(got, "<li") != 2 {
		t.Fatalf("expected 2 items:\n%s", got)
	}
}

func TestOrderedListAndBlockquoteAndRule(t *testing.T) {
	got := MarkdownToHTML("1. first\n2. second\n\n> a **quote**\n\n---", nil)
	if strings.Count(got, "<li") != 2 {
		t.Fatalf("ordered list items missing:\n%s", got)
	}
	if !strings.Contains(got, "<blockquote") || !strings.Contains(got, ">quote</strong>") {
		t.Fatalf("blockquote missing or unbolded:\n%s", got)
	}
	if !strings.Contains(got, "<hr") {
		t.Fatalf("horizontal rule missing:\n%s", got)
	}
}

func TestRawHTMLStripped(t *testing.T) {
	got := MarkdownToHTML(`Before <script>alert(1)</script> after`, nil)
	if strings.Contains(got, "<script") {
		t.Fatalf("script tag survived sanitization:\n%s", got)
	}
	if !strings.Contains(got, "Before") || !strings.Contains(got, "after") {
		t.Fatalf("surrounding text lost:\n%s", got)
	}
}

func TestVoteBlockAppended(t *testing.T) {
	vote := &VoteBlock{URL: "https://example.com/vote.html?id=q1", Question: "选哪个？"}
	got := MarkdownToHTML("# T\n\nbody", vote)
	if !strings.Contains(got, "今日之问") || !strings.Contains(got, vote.URL) {
		t.Fatalf("vote block missing:\n%s", got)
	}

	without := MarkdownToHTML("# T\n\nbody", nil)
	if strings.Contains(without, "今日之问") {
		t.Fatalf("vote block rendered without config:\n%s", without)
	}
}

func TestTitleFromFirstLine(t *testing.T) {
	if got := Title("# 深度解读\n\nbody"); got != "深度解读" {
		t.Fatalf("Title = %q", got)
	}
	if got := Title("no heading"); got != "no heading" {
		t.Fatalf("Title = %q", got)
	}
}

func TestWrapArticleShell(t *testing.T) {
	got := WrapArticle("<p>inner</p>")
	if !strings.Contains(got, "<p>inner</p>") || !strings.Contains(got, "MIND OUR TIMES") {
		t.Fatalf("shell missing pieces:\n%s", got)
	}
}
