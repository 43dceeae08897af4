package crawler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"mtfcrawler/internal"
	"mtfcrawler/internal/config"
)

var validExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".csv":  true,
}

var ignoredExtensions = map[string]bool{
	".stl":  true,
	".zip":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".pdf":  true,
}

var gatedIndicators = []string{
	"login", "signin", "register", "subscribe", "premium", "paid", "member", "tier",
}

// FileService finds spreadsheet attachments on post pages and downloads
// them into the raw data directory, named by content hash so re-downloads
// of identical content land on the same path.
type FileService struct {
	client *Client
	cfg    config.Config
	log    *zap.SugaredLogger
}

func NewFileService(client *Client, cfg config.Config, log *zap.SugaredLogger) *FileService {
	return &FileService{client: client, cfg: cfg, log: log.Named("files")}
}

// ExtractFiles fetches the post page again and downloads every valid
// spreadsheet link it carries. Gated links and failed downloads are logged
// and skipped.
func (s *FileService) ExtractFiles(ctx context.Context, post internal.PostRow) ([]internal.SourceFile, error) {
	body, err := s.client.Get(ctx, post.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch post page: %w", err)
	}

	links, err := findDownloadLinks(body, post.URL)
	if err != nil {
		return nil, err
	}
	links = filterValidLinks(links)

	var files []internal.SourceFile
	for _, link := range links {
		if IsGatedAsset(link) {
			s.log.Infow("skipping gated asset", "url", link)
			continue
		}
		file, err := s.DownloadFile(ctx, link, post.URL)
		if err != nil {
			if errors.Is(err, ErrDisallowedByRobots) {
				s.log.Infow("download disallowed by robots.txt", "url", link)
			} else {
				s.log.Warnw("download failed", "url", link, "err", err)
			}
			continue
		}
		files = append(files, file)
	}
	return files, nil
}

// findDownloadLinks collects candidate file URLs: any link with a known
// file extension, plus every link inside download-ish page sections.
func findDownloadLinks(pageHTML []byte, postURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(postURL)
	if err != nil {
		return nil, err
	}

	var links []string
	seen := map[string]bool{}
	add := func(href string) {
		href = strings.TrimSpace(href)
		if href == "" {
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
		links = append(links, resolved)
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		ext := strings.ToLower(path.Ext(urlPath(href)))
		if validExtensions[ext] || ignoredExtensions[ext] {
			add(href)
		}
	})

	doc.Find(".download a[href], .files a[href], .attachments a[href], .resources a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		add(href)
	})

	return links, nil
}

func urlPath(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	return u.Path
}

func filterValidLinks(links []string) []string {
	var out []string
	for _, link := range links {
		ext := strings.ToLower(path.Ext(urlPath(link)))
		if validExtensions[ext] {
			out = append(out, link)
		}
	}
	return out
}

// IsGatedAsset reports whether a URL looks like it leads to a paywall or
// login page instead of the file itself.
func IsGatedAsset(link string) bool {
	lower := strings.ToLower(link)
	for _, indicator := range gatedIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// DownloadFile fetches one file, stores it under the raw data directory as
// <hash>_<filename> and returns its metadata with Content populated.
func (s *FileService) DownloadFile(ctx context.Context, fileURL, postURL string) (internal.SourceFile, error) {
	content, err := s.client.Get(ctx, fileURL)
	if err != nil {
		return internal.SourceFile{}, err
	}

	filename := path.Base(urlPath(fileURL))
	if filename == "" || filename == "." || filename == "/" {
		filename = "download"
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	if err := os.MkdirAll(s.cfg.RawDataDir, 0o755); err != nil {
		return internal.SourceFile{}, err
	}
	storedPath := filepath.Join(s.cfg.RawDataDir, fmt.Sprintf("%s_%s", hash[:16], filename))
	if err := os.WriteFile(storedPath, content, 0o644); err != nil {
		return internal.SourceFile{}, err
	}

	return internal.SourceFile{
		Filename:      filename,
		FileType:      strings.ToLower(path.Ext(filename)),
		SHA256Hash:    hash,
		FilePath:      storedPath,
		DownloadedAt:  time.Now().UTC().Format(time.RFC3339),
		SourcePostURL: postURL,
		FileSize:      len(content),
		URL:           fileURL,
		Content:       content,
	}, nil
}
