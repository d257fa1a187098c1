// Package markdown turns raw page HTML into the markdown and link list a
// scrape result carries when the provider did not send them.
package markdown

import (
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var (
	mainSelectors = []string{"main", "article", `[role="main"]`, "#content", "#main"}

	noiseSelectors = strings.Join([]string{
		"script", "style", "noscript", "nav", "header", "footer", "aside", "form",
		"iframe", "svg", "button", "input",
		`[role="navigation"]`, `[role="banner"]`, `[role="contentinfo"]`,
		`[aria-label*="cookie" i]`, "[aria-modal]",
	}, ", ")

	noiseKeywords = []string{
		"cookie", "consent", "banner", "navbar", "nav-", "menu-",
		"pagination", "share", "signup", "signin", "login",
		"advert", "promo", "modal", "popup", "breadcrumb", "sidebar",
	}

	blankRuns   = regexp.MustCompile(`\n{3,}`)
	imageOnly   = regexp.MustCompile(`^(!\[[^\]]*\]\([^)]+\)\s*)+$`)
	controlRune = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
	invisible   = strings.NewReplacer(
		"\u200B", "", "\u200C", "", "\u200D", "", "\u200E", "", "\u200F", "",
		"\u2028", "", "\u2029", "", "\uFEFF", "",
	)
)

// FromHTML converts a page to markdown. With onlyMain it keeps the first
// main content region and strips navigation and consent chrome; otherwise the
// whole body is converted.
func FromHTML(html string, onlyMain bool) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	sel := doc.Find("body")
	if onlyMain {
		for _, s := range mainSelectors {
			if found := doc.Find(s); found.Length() > 0 {
				sel = found.First()
				break
			}
		}
		stripNoise(sel)
	} else {
		sel.Find("script, style, noscript").Remove()
	}
	if sel.Length() == 0 {
		sel = doc.Selection
	}

	body, err := sel.Html()
	if err != nil {
		return ""
	}
	out, err := md.NewConverter("", true, nil).ConvertString(body)
	if err != nil {
		return ""
	}
	return Clean(out)
}

func stripNoise(sel *goquery.Selection) {
	sel.Find(noiseSelectors).Remove()
	sel.Find("[class], [id]").Each(func(_ int, s *goquery.Selection) {
		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		attrs := strings.ToLower(class + " " + id)
		for _, kw := range noiseKeywords {
			if strings.Contains(attrs, kw) {
				s.Remove()
				return
			}
		}
	})
}

// Clean drops image-only lines, repeated lines of links or dates and
// invisible characters, and collapses blank runs.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	seen := make(map[string]bool)
	var out []string
	for _, l := range strings.Split(text, "\n") {
		line := strings.TrimRight(l, " \t")
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && imageOnly.MatchString(trimmed) {
			continue
		}
		if repeatable(trimmed) {
			if seen[trimmed] {
				continue
			}
			seen[trimmed] = true
		}
		line = controlRune.ReplaceAllString(line, "")
		out = append(out, invisible.Replace(line))
	}
	cleaned := blankRuns.ReplaceAllString(strings.Join(out, "\n"), "\n\n")
	return strings.TrimSpace(cleaned)
}

var (
	linkLine = regexp.MustCompile(`^\[[^\]]*\]\([^)]+\)$`)
	dateLine = regexp.MustCompile(`^[A-Za-z]{3}\s\d{1,2},\s\d{4}\\?$`)
)

func repeatable(line string) bool {
	return linkLine.MatchString(line) || dateLine.MatchString(line)
}

// Title returns the document's <title>, entities decoded.
func Title(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// Links returns the absolute http(s) links of a page in document order,
// without duplicates or fragments.
func Links(html, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}

	seen := make(map[string]bool)
	links := []string{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		u, err := base.Parse(href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		u.Fragment = ""
		link := u.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})
	return links
}
