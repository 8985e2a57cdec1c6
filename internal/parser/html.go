package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/jewelry-catalog-scraper/internal/models"
)

type HTMLParser struct {
	linkSelector string
	detail       DetailSelectors
}

func NewHTMLParser(linkSelector string, detail DetailSelectors) *HTMLParser {
	return &HTMLParser{
		linkSelector: linkSelector,
		detail:       detail,
	}
}

// ParseListing returns the product links of a listing page, absolute,
// without fragments, in page order and without repeats.
func (p *HTMLParser) ParseListing(html, pageURL string) ([]string, error) {
	if p.linkSelector == "" {
		return nil, fmt.Errorf("link selector: %w", ErrNoSelector)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, _ := url.Parse(pageURL)
	seen := make(map[string]bool)
	var links []string

	doc.Find(p.linkSelector).Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		link := resolve(base, href)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})

	return links, nil
}

func (p *HTMLParser) ParseDetail(html, pageURL string) (*models.RawAttributes, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	name := p.text(doc, p.detail.Name)
	if name == "" {
		return nil, ErrNameNotFound
	}

	raw := &models.RawAttributes{
		Name:       name,
		Attributes: p.extractAttributes(doc),
	}

	if price := p.valueOf(doc, p.detail.Price, p.detail.PriceAttr); price != "" {
		raw.PriceText = &price
	}

	var parts []string
	for _, sel := range p.detail.Description {
		if t := p.text(doc, sel); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) > 0 {
		desc := strings.Join(parts, " ")
		raw.Description = &desc
	}

	base, _ := url.Parse(pageURL)
	raw.ImageRef = resolve(base, p.extractImage(doc))

	return raw, nil
}

func (p *HTMLParser) extractImage(doc *goquery.Document) string {
	if p.detail.Image == "" {
		return ""
	}
	img := doc.Find(p.detail.Image).First()

	attrs := []string{"src", "data-src", "data-zoom-image"}
	if p.detail.ImageAttr != "" {
		attrs = append([]string{p.detail.ImageAttr}, attrs...)
	}
	for _, attr := range attrs {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return firstSrcsetEntry(v)
		}
	}
	if srcset, ok := img.Attr("srcset"); ok {
		return firstSrcsetEntry(srcset)
	}
	return ""
}

func (p *HTMLParser) extractAttributes(doc *goquery.Document) map[string]string {
	attrs := make(map[string]string)
	if p.detail.Rows == "" {
		return attrs
	}

	doc.Find(p.detail.Rows).Each(func(i int, s *goquery.Selection) {
		var label, value string
		if p.detail.Label != "" && p.detail.Value != "" {
			label = cleanText(s.Find(p.detail.Label).First().Text())
			value = cleanText(s.Find(p.detail.Value).First().Text())
		} else {
			label, value, _ = strings.Cut(cleanText(s.Text()), ":")
			label, value = strings.TrimSpace(label), strings.TrimSpace(value)
		}

		if label == "" || value == "" {
			return
		}
		if _, exists := attrs[label]; !exists {
			attrs[label] = value
		}
	})

	return attrs
}

func (p *HTMLParser) text(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return cleanText(doc.Find(selector).First().Text())
}

func (p *HTMLParser) valueOf(doc *goquery.Document, selector, attr string) string {
	if selector == "" {
		return ""
	}
	sel := doc.Find(selector).First()
	if attr != "" {
		v, _ := sel.Attr(attr)
		return cleanText(v)
	}
	return cleanText(sel.Text())
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstSrcsetEntry(v string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(v), ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	ref.Fragment = ""
	return ref.String()
}
