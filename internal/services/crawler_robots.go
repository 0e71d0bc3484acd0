package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

// RobotsChecker handles robots.txt fetching and compliance checking
type RobotsChecker struct {
	cache     *cache.Cache
	userAgent string
	client    *http.Client
}

// NewRobotsChecker creates a new robots.txt checker
func NewRobotsChecker(userAgent string) *RobotsChecker {
	return &RobotsChecker{
		cache:     cache.New(24*time.Hour, 1*time.Hour),
		userAgent: userAgent,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CanFetch checks if the URL can be fetched according to robots.txt.
// Returns (allowed, crawlDelay, error). Missing or unparsable robots.txt
// allows fetching with a 1 second delay.
func (rc *RobotsChecker) CanFetch(ctx context.Context, urlStr string) (bool, time.Duration, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false, 0, fmt.Errorf("invalid URL: %w", err)
	}

	domain := parsedURL.Scheme + "://" + parsedURL.Host
	robotsURL := domain + "/robots.txt"

	if cached, found := rc.cache.Get(domain); found {
		robotsData := cached.(*robotstxt.RobotsData)
		group := robotsData.FindGroup(rc.userAgent)
		return group.Test(parsedURL.Path), rc.getCrawlDelay(group), nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", robotsURL, nil)
	if err != nil {
		return false, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		// Network error fetching robots.txt, allow by default
		return true, 1 * time.Second, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return true, 1 * time.Second, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
	if err != nil {
		return true, 1 * time.Second, nil
	}

	robotsData, err := robotstxt.FromBytes(body)
	if err != nil {
		return true, 1 * time.Second, nil
	}

	rc.cache.Set(domain, robotsData, cache.DefaultExpiration)

	group := robotsData.FindGroup(rc.userAgent)
	return group.Test(parsedURL.Path), rc.getCrawlDelay(group), nil
}

func (rc *RobotsChecker) getCrawlDelay(group *robotstxt.Group) time.Duration {
	if group.CrawlDelay > 0 {
		delay := group.CrawlDelay
		if delay > 10*time.Second {
			delay = 10 * time.Second
		}
		return delay
	}
	return 1 * time.Second
}

// SetUserAgent updates the user agent string
func (rc *RobotsChecker) SetUserAgent(userAgent string) {
	rc.userAgent = userAgent
}
