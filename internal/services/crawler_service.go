package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"github.com/azcoigreach/news-aggregator/internal/database"
	"github.com/azcoigreach/news-aggregator/internal/logging"
	"github.com/azcoigreach/news-aggregator/internal/models"
)

const (
	defaultCrawlerUserAgent = "NewsAggregator/1.0"
	defaultMaxBodySize      = 10 * 1024 * 1024 // 10MB
	defaultMaxConcurrent    = 16
	defaultGlobalCrawlRate  = 10.0 // requests per second
	minArticleContentChars  = 200
)

// CrawlerService fetches source index pages, discovers article links and
// stores extracted articles. Crawl tunables (user agent, delay, concurrency)
// come from the configuration store and are re-read before each crawl.
type CrawlerService struct {
	db            *database.DB
	client        *CrawlerClient
	rateLimiter   *CrawlRateLimiter
	robotsChecker *RobotsChecker
	resourceMgr   *ResourceManager

	configService  *ConfigurationService
	sourceService  *SourceService
	articleService *ArticleService

	mu      sync.RWMutex
	running bool
}

// NewCrawlerService creates a new crawler service
func NewCrawlerService(db *database.DB, configService *ConfigurationService,
	sourceService *SourceService, articleService *ArticleService) *CrawlerService {
	return &CrawlerService{
		db:             db,
		client:         NewCrawlerClient(defaultCrawlerUserAgent),
		rateLimiter:    NewCrawlRateLimiter(defaultGlobalCrawlRate),
		robotsChecker:  NewRobotsChecker(defaultCrawlerUserAgent),
		resourceMgr:    NewResourceManager(defaultMaxConcurrent, defaultMaxBodySize),
		configService:  configService,
		sourceService:  sourceService,
		articleService: articleService,
	}
}

// Start enables crawl dispatch
func (s *CrawlerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.running = true
		log.Println("🚀 Crawler started")
	}
}

// Stop disables crawl dispatch. In-flight crawls finish.
func (s *CrawlerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.running = false
		log.Println("✅ Crawler stopped")
	}
}

// IsRunning reports whether crawl dispatch is enabled
func (s *CrawlerService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// refreshSettings re-reads crawl tunables from the configuration store
func (s *CrawlerService) refreshSettings(ctx context.Context) {
	if s.configService == nil {
		return
	}

	if ua, err := s.configService.Get(ctx, "crawler_user_agent", "", nil); err == nil {
		if uaStr, ok := ua.(string); ok && uaStr != "" {
			s.client.SetUserAgent(uaStr)
			s.robotsChecker.SetUserAgent(uaStr)
		}
	}
	if maxReq, err := s.configService.Get(ctx, "max_concurrent_requests", "", nil); err == nil {
		switch v := maxReq.(type) {
		case int64:
			s.resourceMgr.Resize(int(v))
		case float64:
			s.resourceMgr.Resize(int(v))
		}
	}
}

// configuredDelay returns the crawler_delay setting, falling back to the
// source's own crawl_delay.
func (s *CrawlerService) configuredDelay(ctx context.Context, source *models.Source) time.Duration {
	delay := source.CrawlDelay
	if s.configService != nil {
		if v, err := s.configService.Get(ctx, "crawler_delay", "", nil); err == nil {
			switch d := v.(type) {
			case float64:
				delay = d
			case int64:
				delay = float64(d)
			}
		}
	}
	if delay <= 0 {
		delay = 1.0
	}
	return time.Duration(delay * float64(time.Second))
}

// CrawlSource runs the full crawl pipeline for one source
func (s *CrawlerService) CrawlSource(ctx context.Context, sourceID int, taskID string) error {
	source, err := s.sourceService.GetByID(sourceID)
	if err != nil {
		return err
	}
	if source == nil {
		return fmt.Errorf("source %d not found", sourceID)
	}

	logger := logging.WithCrawl(taskID, source.ID, source.URL)
	startTime := time.Now()

	s.refreshSettings(ctx)

	logID, err := s.startCrawlLog(source.ID, startTime)
	if err != nil {
		logger.Warn("failed to open crawl log", "error", err)
	}

	found, stored, crawlErr := s.crawl(ctx, source, logger)

	duration := time.Since(startTime)
	if m := GetMetrics(); m != nil {
		m.CrawlDuration.Observe(duration.Seconds())
	}

	if crawlErr != nil {
		s.finishCrawlLog(logID, "failed", found, stored, crawlErr.Error())
		if err := s.sourceService.RecordCrawlError(source.ID, crawlErr.Error()); err != nil {
			logger.Warn("failed to record crawl error", "error", err)
		}
		if m := GetMetrics(); m != nil {
			m.CrawlsTotal.WithLabelValues("failed").Inc()
		}
		logger.Error("crawl failed", "error", crawlErr, "duration_ms", duration.Milliseconds())
		return crawlErr
	}

	s.finishCrawlLog(logID, "completed", found, stored, "")
	if err := s.sourceService.RecordCrawlSuccess(source.ID, stored); err != nil {
		logger.Warn("failed to record crawl success", "error", err)
	}
	if m := GetMetrics(); m != nil {
		m.CrawlsTotal.WithLabelValues("completed").Inc()
	}

	logger.Info("crawl completed",
		"articles_found", found,
		"articles_stored", stored,
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

func (s *CrawlerService) crawl(ctx context.Context, source *models.Source, logger *slog.Logger) (found, stored int, err error) {
	if err := validateCrawlURL(source.URL); err != nil {
		return 0, 0, err
	}

	parsedURL, err := url.Parse(source.URL)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid source URL: %w", err)
	}

	crawlDelay := s.configuredDelay(ctx, source)
	if source.RespectRobotsTxt {
		allowed, robotsDelay, err := s.robotsChecker.CanFetch(ctx, source.URL)
		if err != nil {
			logger.Warn("robots.txt check failed", "error", err)
		} else {
			if !allowed {
				return 0, 0, fmt.Errorf("access blocked by robots.txt: %s", source.URL)
			}
			if robotsDelay > crawlDelay {
				crawlDelay = robotsDelay
			}
		}
	}

	indexBody, err := s.fetchPage(ctx, source.URL, parsedURL.Host, crawlDelay)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch source page: %w", err)
	}

	links := extractArticleLinks(indexBody, parsedURL)
	if len(links) > source.MaxArticlesPerCrawl {
		links = links[:source.MaxArticlesPerCrawl]
	}
	found = len(links)

	for _, link := range links {
		select {
		case <-ctx.Done():
			return found, stored, ctx.Err()
		default:
		}

		existing, err := s.articleService.GetByURL(link)
		if err != nil {
			logger.Warn("dedupe lookup failed", "url", link, "error", err)
			continue
		}
		if existing != nil {
			continue
		}

		article, err := s.fetchArticle(ctx, link, source, crawlDelay)
		if err != nil {
			logger.Debug("skipping article", "url", link, "reason", err)
			continue
		}

		if _, err := s.articleService.Create(article); err != nil {
			logger.Warn("failed to store article", "url", link, "error", err)
			continue
		}
		stored++
		if m := GetMetrics(); m != nil {
			m.ArticlesStored.Inc()
		}
	}

	return found, stored, nil
}

// fetchArticle fetches one article page and extracts its content
func (s *CrawlerService) fetchArticle(ctx context.Context, urlStr string, source *models.Source, crawlDelay time.Duration) (*models.Article, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	body, err := s.fetchPage(ctx, urlStr, parsedURL.Host, crawlDelay)
	if err != nil {
		return nil, err
	}

	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		OriginalURL: parsedURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}
	if result == nil || result.ContentText == "" {
		return nil, fmt.Errorf("no content extracted")
	}
	if len(result.ContentText) < minArticleContentChars {
		return nil, fmt.Errorf("content too short (%d chars)", len(result.ContentText))
	}

	title := strings.TrimSpace(result.Metadata.Title)
	if title == "" {
		title = urlStr
	}

	article := &models.Article{
		Title:     title,
		Content:   result.ContentText,
		URL:       urlStr,
		SourceURL: source.URL,
		Author:    result.Metadata.Author,
		Language:  source.Language,
		SourceID:  &source.ID,
	}
	if !result.Metadata.Date.IsZero() {
		published := result.Metadata.Date.UTC()
		article.PublishedAt = &published
	}
	return article, nil
}

// fetchPage applies rate limiting and the fetch slot, then downloads a page
func (s *CrawlerService) fetchPage(ctx context.Context, urlStr, domain string, crawlDelay time.Duration) ([]byte, error) {
	if err := s.rateLimiter.Wait(ctx, domain, crawlDelay); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	release, err := s.resourceMgr.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	resp, err := s.client.Get(ctx, urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, resp.Status)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !isSupportedContentType(contentType) {
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}

	return s.resourceMgr.ReadBody(resp.Body)
}

// TestSource checks that a source URL is reachable and returns the HTTP
// status. Robots and rate limiting are skipped, this is a one-off probe.
func (s *CrawlerService) TestSource(ctx context.Context, urlStr string) (int, error) {
	if err := validateCrawlURL(urlStr); err != nil {
		return 0, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	resp, err := s.client.Get(probeCtx, urlStr)
	if err != nil {
		return 0, fmt.Errorf("failed to reach source: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

func (s *CrawlerService) startCrawlLog(sourceID int, startedAt time.Time) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO crawl_logs (source_id, status, started_at) VALUES (?, ?, ?)",
		sourceID, "running", startedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert crawl log: %w", err)
	}
	return result.LastInsertId()
}

func (s *CrawlerService) finishCrawlLog(id int64, status string, found, stored int, errMsg string) {
	if id == 0 {
		return
	}
	var errVal interface{}
	if errMsg != "" {
		errVal = errMsg
	}
	_, err := s.db.Exec(`
		UPDATE crawl_logs
		SET status = ?, articles_found = ?, articles_stored = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		status, found, stored, errVal, time.Now().UTC(), id,
	)
	if err != nil {
		log.Printf("⚠️  Failed to finish crawl log %d: %v", id, err)
	}
}

// ListCrawlLogs returns recent crawl logs, optionally filtered by source
func (s *CrawlerService) ListCrawlLogs(sourceID *int, limit int) ([]models.CrawlLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, source_id, status, articles_found, articles_stored, error, started_at, finished_at
		FROM crawl_logs`
	args := []interface{}{}
	if sourceID != nil {
		query += " WHERE source_id = ?"
		args = append(args, *sourceID)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query crawl logs: %w", err)
	}
	defer rows.Close()

	var logs []models.CrawlLog
	for rows.Next() {
		var cl models.CrawlLog
		var errMsg sql.NullString
		var finishedAt sql.NullTime
		if err := rows.Scan(&cl.ID, &cl.SourceID, &cl.Status, &cl.ArticlesFound,
			&cl.ArticlesStored, &errMsg, &cl.StartedAt, &finishedAt); err != nil {
			return nil, err
		}
		cl.Error = errMsg.String
		if finishedAt.Valid {
			cl.FinishedAt = &finishedAt.Time
		}
		logs = append(logs, cl)
	}
	return logs, rows.Err()
}

// validateCrawlURL checks the URL is safe to fetch (SSRF protection)
func validateCrawlURL(urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("only HTTP/HTTPS URLs are supported, got: %s", parsedURL.Scheme)
	}

	hostname := strings.ToLower(parsedURL.Hostname())

	if hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1" {
		return fmt.Errorf("localhost URLs are not allowed")
	}

	privateRanges := []string{
		"192.168.", "10.", "172.16.", "172.17.", "172.18.", "172.19.",
		"172.20.", "172.21.", "172.22.", "172.23.", "172.24.", "172.25.",
		"172.26.", "172.27.", "172.28.", "172.29.", "172.30.", "172.31.",
		"169.254.", // link-local
		"fd",       // IPv6 private
	}
	for _, prefix := range privateRanges {
		if strings.HasPrefix(hostname, prefix) {
			return fmt.Errorf("private IP addresses are not allowed")
		}
	}

	return nil
}

func isSupportedContentType(contentType string) bool {
	supported := []string{
		"text/html",
		"text/plain",
		"application/xhtml+xml",
	}
	for _, ct := range supported {
		if strings.Contains(contentType, ct) {
			return true
		}
	}
	return false
}

// extractArticleLinks pulls same-host links out of a source's index page.
// Order is document order, duplicates removed.
func extractArticleLinks(body []byte, base *url.URL) []string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string

	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				link := resolveArticleLink(attr.Val, base)
				if link != "" && !seen[link] {
					seen[link] = true
					links = append(links, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)

	return links
}

// resolveArticleLink normalizes an href to an absolute same-host URL, or
// returns "" if it cannot be an article page.
func resolveArticleLink(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)

	if resolved.Host != base.Host {
		return ""
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	// Index pages link to themselves in navigation
	if resolved.Path == "" || resolved.Path == "/" || resolved.Path == base.Path {
		return ""
	}

	lower := strings.ToLower(resolved.Path)
	for _, ext := range []string{".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".pdf", ".xml", ".zip", ".mp4", ".mp3", ".webp"} {
		if strings.HasSuffix(lower, ext) {
			return ""
		}
	}

	resolved.Fragment = ""
	return resolved.String()
}
