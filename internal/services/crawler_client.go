package services

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// CrawlerClient wraps an HTTP client with settings tuned for fetching
// news pages from many hosts
type CrawlerClient struct {
	httpClient *http.Client
	userAgent  string
	mu         sync.RWMutex
}

// NewCrawlerClient creates a new HTTP client for the crawler
func NewCrawlerClient(userAgent string) *CrawlerClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20, // default is 2, far too low for crawling
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  false,

		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &CrawlerClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   60 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects (max 10)")
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

// Get performs an HTTP GET request with crawler headers
func (c *CrawlerClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.UserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	return c.httpClient.Do(req)
}

// UserAgent returns the current user agent string
func (c *CrawlerClient) UserAgent() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userAgent
}

// SetUserAgent updates the user agent string
func (c *CrawlerClient) SetUserAgent(userAgent string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userAgent = userAgent
}
