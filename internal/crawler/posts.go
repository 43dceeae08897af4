package crawler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"mtfcrawler/internal"
	"mtfcrawler/internal/util"
)

var manufacturerDomains = []string{
	"prusament", "polymaker", "hatchbox3d", "overture3d", "sunlu", "esun3d",
}

var promoKeywords = []string{
	"sponsor", "affiliate", "coupon", "discount code", "promo code", "use code",
}

var promoClassPattern = regexp.MustCompile(`(?i)(promo|sponsor|advert|banner)`)

// CrawlerService discovers material test posts on the listing page and
// fetches each post's content.
type CrawlerService struct {
	client *Client
	log    *zap.SugaredLogger
}

func NewCrawlerService(client *Client, log *zap.SugaredLogger) *CrawlerService {
	return &CrawlerService{client: client, log: log.Named("crawler")}
}

// CrawlPosts fetches the listing page and crawls every discovered post, up
// to max posts when max > 0. A failed post is logged and skipped so one bad
// page never aborts the crawl.
func (s *CrawlerService) CrawlPosts(ctx context.Context, baseURL string, max int) ([]internal.PostRow, error) {
	body, err := s.client.Get(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	postURLs, err := ExtractPostURLs(body, baseURL)
	if err != nil {
		return nil, err
	}
	if max > 0 && len(postURLs) > max {
		postURLs = postURLs[:max]
	}
	s.log.Infow("posts discovered", "count", len(postURLs))

	var posts []internal.PostRow
	seen := map[string]bool{}
	for _, postURL := range postURLs {
		post, err := s.CrawlPost(ctx, postURL)
		if err != nil {
			s.log.Warnw("post crawl failed", "url", postURL, "err", err)
			continue
		}
		if seen[post.PostHash] {
			continue
		}
		seen[post.PostHash] = true
		posts = append(posts, post)
	}
	return posts, nil
}

// ExtractPostURLs pulls individual post links out of the listing page HTML.
// Relative links are resolved against the listing URL; duplicates keep
// their first position.
func ExtractPostURLs(listingHTML []byte, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(listingHTML))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	var urls []string
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		if !strings.Contains(href, "/video/") || strings.Contains(href, "/videos/") {
			return
		}
		if strings.Contains(href, "youtube.com") || strings.Contains(href, "youtu.be") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref).String()
		if seen[resolved] {
			return
		}
		seen[resolved] = true
		urls = append(urls, resolved)
	})

	return urls, nil
}

// CrawlPost fetches one post page and builds its row: title, cleaned text,
// YouTube link, manufacturer links and the content hash used for change
// detection.
func (s *CrawlerService) CrawlPost(ctx context.Context, postURL string) (internal.PostRow, error) {
	body, err := s.client.Get(ctx, postURL)
	if err != nil {
		return internal.PostRow{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return internal.PostRow{}, err
	}

	title := ""
	doc.Find("h1").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := util.NormalizeSpaces(sel.Text())
		if text == "" || strings.Contains(text, "MyTechFun.com") {
			return true
		}
		title = text
		return false
	})

	var youtubeLink *string
	doc.Find("a[href], iframe[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link, ok := sel.Attr("href")
		if !ok {
			link, _ = sel.Attr("src")
		}
		if strings.Contains(link, "youtube.com/watch") || strings.Contains(link, "youtu.be/") ||
			strings.Contains(link, "youtube.com/embed") {
			youtubeLink = util.StringPtr(link)
			return false
		}
		return true
	})

	var manufacturerLinks []string
	seenLinks := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		lower := strings.ToLower(href)
		for _, domain := range manufacturerDomains {
			if strings.Contains(lower, domain) && !seenLinks[href] {
				seenLinks[href] = true
				manufacturerLinks = append(manufacturerLinks, href)
				break
			}
		}
	})

	cleaned, err := CleanPostHTML(body)
	if err != nil {
		return internal.PostRow{}, err
	}

	hash := sha256.Sum256([]byte(postURL + "|" + cleaned))

	return internal.PostRow{
		URL:               postURL,
		Title:             title,
		CleanedText:       cleaned,
		YouTubeLink:       youtubeLink,
		ManufacturerLinks: manufacturerLinks,
		DownloadedAt:      time.Now().UTC().Format(time.RFC3339),
		PostHash:          hex.EncodeToString(hash[:]),
		Status:            "discovered",
	}, nil
}

// CleanPostHTML strips site chrome and promotional blocks from a post page
// and returns the remaining visible text, whitespace-normalized. The same
// input always yields the same output, which keeps post hashes stable.
func CleanPostHTML(pageHTML []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML))
	if err != nil {
		return "", err
	}

	doc.Find("header, nav, .menu, #menu, footer, script, style").Remove()

	doc.Find("h1").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(sel.Text(), "MyTechFun.com") {
			sel.Remove()
			return false
		}
		return true
	})

	// everything under the last horizontal rule is footer boilerplate
	if hrs := doc.Find("hr"); hrs.Length() > 0 {
		last := hrs.Last()
		last.NextAll().Remove()
		last.Remove()
	}

	doc.Find("div, section, aside").Each(func(_ int, sel *goquery.Selection) {
		class, _ := sel.Attr("class")
		id, _ := sel.Attr("id")
		if promoClassPattern.MatchString(class) || promoClassPattern.MatchString(id) {
			sel.Remove()
		}
	})

	// keyword removal targets leaf blocks only, so a promo mention in one
	// paragraph never wipes the whole post body
	doc.Find("p, li").Each(func(_ int, sel *goquery.Selection) {
		text := strings.ToLower(sel.Text())
		for _, kw := range promoKeywords {
			if strings.Contains(text, kw) {
				sel.Remove()
				return
			}
		}
	})

	return util.NormalizeSpaces(doc.Text()), nil
}
