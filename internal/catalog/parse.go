package catalog

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"

	"gamedeck/internal/services"
)

var (
	sizePattern       = regexp.MustCompile(`(?i)size:\s*([0-9.]+\s*[MGT]B)`)
	directFilePattern = regexp.MustCompile(`/u/([a-zA-Z0-9]+)`)
)

const aboutHeading = "ABOUT THE GAME"

// parseEntries reads the listing page. Only the first limit posts are
// considered; posts among them missing a title or link are dropped.
func parseEntries(doc *goquery.Document, pageURL *url.URL, limit int) []Entry {
	entries := make([]Entry, 0, limit)
	posts := doc.Find("div.post")
	if posts.Length() > limit {
		posts = posts.Slice(0, limit)
	}
	posts.Each(func(_ int, post *goquery.Selection) {
		anchor := post.Find("h2 a").First()
		title := strings.TrimSpace(anchor.Text())
		href, ok := anchor.Attr("href")
		href = strings.TrimSpace(href)
		if title == "" || !ok || href == "" {
			return
		}
		entries = append(entries, Entry{Title: title, DetailURL: resolveHref(pageURL, href)})
	})
	return entries
}

// extractDescription returns the paragraph right after the first heading
// mentioning "ABOUT THE GAME".
func extractDescription(doc *goquery.Document) (string, error) {
	heading := doc.Find("h1, h2, h3, h4, h5, h6").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(upper.String(s.Text()), aboutHeading)
	}).First()
	if heading.Length() == 0 {
		return "", services.Wrap(services.ErrNotFound, "catalog", "description", "about heading missing", nil)
	}
	text := strings.TrimSpace(heading.Next().Filter("p").Text())
	if text == "" {
		return "", services.Wrap(services.ErrNotFound, "catalog", "description", "no paragraph after heading", nil)
	}
	return text, nil
}

// extractSize returns the first "Size: N XB" label found in the raw page.
func extractSize(raw string) (string, error) {
	match := sizePattern.FindStringSubmatch(raw)
	if match == nil {
		return "", services.Wrap(services.ErrNotFound, "catalog", "size", "size label missing", nil)
	}
	return strings.TrimSpace(match[1]), nil
}

// parseSizeBytes converts a label such as "12.5 GB" into bytes.
func parseSizeBytes(label string) (uint64, error) {
	n, err := humanize.ParseBytes(label)
	if err != nil {
		return 0, services.Wrap(services.ErrDecode, "catalog", "size", fmt.Sprintf("parse %q", label), err)
	}
	return n, nil
}

type hostLink struct {
	host Host
	href string
}

// extractLinks walks every paragraph with a bold host label and a link, in
// document order. The first link per canonical host wins.
func extractLinks(doc *goquery.Document, pageURL *url.URL) ([]hostLink, error) {
	var links []hostLink
	seen := map[string]struct{}{}
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		label := p.Find("strong, b")
		if label.Length() == 0 {
			return
		}
		host, ok := MatchHost(label.Text())
		if !ok {
			return
		}
		href, ok := p.Find("a").First().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		if _, dup := seen[host.Canonical]; dup {
			return
		}
		seen[host.Canonical] = struct{}{}
		links = append(links, hostLink{host: host, href: resolveHref(pageURL, href)})
	})
	if len(links) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "links", "no known hosts on page", nil)
	}
	return links, nil
}

// deriveDirectAPI maps a direct host share URL (/u/<id>) to its file API
// endpoint on the same scheme and host.
func deriveDirectAPI(link string) (string, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "catalog", "direct link", "unparseable url", err)
	}
	match := directFilePattern.FindStringSubmatch(parsed.Path)
	if match == nil || parsed.Host == "" {
		return "", services.Wrap(services.ErrValidation, "catalog", "direct link", "not a /u/<id> share url", nil)
	}
	scheme := parsed.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + parsed.Host + "/api/file/" + match[1], nil
}

// assembleDetails applies the documented defaults to each extraction result.
func assembleDetails(doc *goquery.Document, raw string, pageURL *url.URL) Details {
	details := Details{
		Description: defaultDescription,
		SizeLabel:   defaultSizeLabel,
		AllLinks:    map[string]string{},
	}
	if desc, err := extractDescription(doc); err == nil {
		details.Description = desc
	}
	if size, err := extractSize(raw); err == nil {
		details.SizeLabel = size
		if n, err := parseSizeBytes(size); err == nil {
			details.SizeBytes = n
		}
	}
	links, err := extractLinks(doc, pageURL)
	if err != nil {
		return details
	}
	for _, link := range links {
		details.AllLinks[link.host.Canonical] = link.href
		switch link.host.Role {
		case RoleDirect:
			if api, err := deriveDirectAPI(link.href); err == nil {
				details.DirectInstallAPI = api
				if details.PriorityLink == "" {
					details.PriorityLink = link.href
				}
			}
		case RoleSecondary:
			if details.PriorityLink == "" {
				details.PriorityLink = link.href
			}
		}
	}
	return details
}

func resolveHref(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
