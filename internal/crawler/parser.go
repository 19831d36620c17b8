package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/nodescan/internal/model"
)

// forwardPathMarker identifies redirector links generated by the CMS for
// node references. They are neither reported nor verified.
const forwardPathMarker = "forward?path=node"

// URLSet reports membership of an absolute URL.
type URLSet interface {
	Contains(url string) bool
}

// DomainMatcher reports whether a raw href points at an ignored domain.
type DomainMatcher interface {
	Matches(href string) bool
}

// Classification is the network-free result of parsing one page.
type Classification struct {
	// Accessibility holds MissingAltText issues followed by EmptyLinkText
	// issues, each group in document order.
	Accessibility []model.Issue

	// ToVerify holds the resolved URLs of every link that must be checked
	// for breakage, in document order.
	ToVerify []string
}

// Parser classifies the elements of a node page.
type Parser struct {
	baseURL    *url.URL
	exclusions URLSet
	social     DomainMatcher
}

// NewParser creates a parser that resolves references against baseURL.
// exclusions and social may be nil.
func NewParser(baseURL string, exclusions URLSet, social DomainMatcher) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u, exclusions: exclusions, social: social}, nil
}

// Classify walks the images and then the anchors of doc.
func (p *Parser) Classify(doc *goquery.Document) Classification {
	var result Classification

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		alt, ok := img.Attr("alt")
		if ok && strings.TrimSpace(alt) != "" {
			return
		}
		src, _ := img.Attr("src")
		imgURL := p.resolveURL(src)
		if !p.excluded(imgURL) {
			result.Accessibility = append(result.Accessibility,
				model.Issue{Kind: model.IssueMissingAltText, URL: imgURL})
		}
	})

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" || p.ignoredHref(href) {
			return
		}

		linkURL := p.resolveURL(href)
		if strings.TrimSpace(a.Text()) == "" {
			if strings.Contains(linkURL, forwardPathMarker) {
				return
			}
			if !p.excluded(linkURL) {
				result.Accessibility = append(result.Accessibility,
					model.Issue{Kind: model.IssueEmptyLinkText, URL: linkURL})
			}
		}
		result.ToVerify = append(result.ToVerify, linkURL)
	})

	return result
}

// ignoredHref reports whether a raw href is skipped before resolution.
func (p *Parser) ignoredHref(href string) bool {
	if strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "#") {
		return true
	}
	return p.social != nil && p.social.Matches(href)
}

func (p *Parser) excluded(u string) bool {
	return p.exclusions != nil && p.exclusions.Contains(u)
}

// resolveURL resolves a reference against the base URL. References that do
// not parse are returned unchanged so they still fail verification.
func (p *Parser) resolveURL(ref string) string {
	ref = strings.TrimSpace(ref)
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return p.baseURL.ResolveReference(u).String()
}
