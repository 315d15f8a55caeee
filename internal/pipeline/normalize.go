package pipeline

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"tickerize/internal/util"
)

// CleanHeadline strips markup and entities that feed headlines sometimes
// carry and collapses whitespace. Known HTML tags become word separators.
// When the text has anything that only looks like a tag, such as
// "<Apple, Tesla>", entities are decoded and everything else is kept.
func CleanHeadline(input string) string {
	if !strings.ContainsAny(input, "<&") {
		return util.NormalizeSpaces(input)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		return util.NormalizeSpaces(html.UnescapeString(input))
	}

	var texts []string
	known := true
	for _, n := range doc.Nodes {
		walkText(n, &texts, &known)
	}
	if !known {
		return util.NormalizeSpaces(html.UnescapeString(input))
	}
	return util.NormalizeSpaces(strings.Join(texts, " "))
}

// walkText collects text nodes in document order. known is cleared when an
// element is not a standard HTML tag.
func walkText(n *html.Node, texts *[]string, known *bool) {
	switch n.Type {
	case html.TextNode:
		*texts = append(*texts, n.Data)
	case html.ElementNode:
		if n.DataAtom == 0 {
			*known = false
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, texts, known)
	}
}
