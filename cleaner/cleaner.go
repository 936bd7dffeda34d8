package cleaner

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// MinBlockLength is the rune count a candidate block must reach to be kept.
	MinBlockLength = 50

	blockSeparator = "\n\n"
)

var (
	noiseSelector     = "script, style, noscript, iframe"
	chromeSelector    = "header, footer, nav, aside, .sidebar, .advert, .ads, .cookie, #header, #footer"
	candidateSelector = "article, main, section, div, p"

	promoPattern = regexp.MustCompile(`(?i)^(ad|ads|advert|banner|promo|cookie)$`)
)

// CleanHTML strips a document down to deduplicated prose blocks joined by a
// blank line. It returns an empty string when nothing readable is left.
func CleanHTML(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}

	doc.Find(noiseSelector).Remove()
	doc.Find(chromeSelector).Remove()
	doc.Find("[class], [id]").FilterFunction(isPromo).Remove()

	candidates := doc.Find(candidateSelector)
	if candidates.Length() == 0 {
		body := doc.Find("body")
		if body.Length() == 0 {
			return ""
		}
		return visibleText(body)
	}

	seen := make(map[string]struct{})
	var blocks []string
	candidates.Each(func(_ int, s *goquery.Selection) {
		text := visibleText(s)
		if utf8.RuneCountInString(text) < MinBlockLength {
			return
		}
		if _, ok := seen[text]; ok {
			return
		}
		seen[text] = struct{}{}
		blocks = append(blocks, text)
	})

	return strings.Join(blocks, blockSeparator)
}

// isPromo matches elements whose id or any class token names an ad, banner,
// promo or cookie region.
func isPromo(_ int, s *goquery.Selection) bool {
	if id, ok := s.Attr("id"); ok && promoPattern.MatchString(strings.TrimSpace(id)) {
		return true
	}
	class, ok := s.Attr("class")
	if !ok {
		return false
	}
	for _, token := range strings.Fields(class) {
		if promoPattern.MatchString(token) {
			return true
		}
	}
	return false
}

// visibleText joins every text node under the selection and collapses
// whitespace runs to single spaces.
func visibleText(s *goquery.Selection) string {
	var parts []string
	for _, n := range s.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
