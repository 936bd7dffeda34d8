package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Page is one fetched document in crawl order.
type Page struct {
	URL   string
	HTML  string
	Depth int
}

type Crawler struct {
	config    *CrawlerConfig
	validator *URLValidator
	logger    *zap.Logger
}

type queueItem struct {
	url   string
	depth int
}

type fetchResult struct {
	body   []byte
	status int
	links  []string
}

func NewCrawler(config *CrawlerConfig, logger *zap.Logger) *Crawler {
	if config == nil {
		config = DefaultConfig()
	}
	return &Crawler{
		config:    config,
		validator: NewURLValidator(config),
		logger:    logger,
	}
}

// Crawl walks the seed's site breadth-first and returns the fetched pages in
// visitation order. It stops once maxPages pages were fetched or nothing is
// left within maxDepth. An invalid seed yields no pages.
func (w *Crawler) Crawl(ctx context.Context, seedURL string, maxPages, maxDepth int) []Page {
	logger := GetContextLogger(ctx, w.logger)

	seedURL = strings.TrimSpace(seedURL)
	seed, ok := w.validator.Parse(seedURL)
	if !ok {
		logger.Warn("invalid seed URL", zap.String("url", seedURL))
		return nil
	}
	if maxPages < 1 {
		return nil
	}

	collector := w.newCollector(ctx, logger)
	tracker := NewVisitTracker()
	queue := []queueItem{{url: seedURL, depth: 0}}
	var pages []Page

	for len(queue) > 0 && tracker.GetUniqueURLsCount() < maxPages {
		if err := ctx.Err(); err != nil {
			logger.Warn("crawl cancelled", zap.Error(err))
			break
		}

		item := queue[0]
		queue = queue[1:]
		if !tracker.ShouldVisit(item.url) || item.depth > maxDepth {
			continue
		}

		logger.Info("crawling page",
			zap.Int("page", tracker.GetUniqueURLsCount()+1),
			zap.String("url", item.url),
			zap.Int("depth", item.depth))

		res, err := w.fetch(collector, item.url)
		if err != nil {
			tracker.RecordFailure(item.url)
			continue
		}
		if len(res.body) == 0 {
			logger.Warn("empty page", zap.String("url", item.url), zap.Int("status_code", res.status))
			tracker.RecordFailure(item.url)
			continue
		}

		pages = append(pages, Page{URL: item.url, HTML: string(res.body), Depth: item.depth})
		tracker.RecordVisit(item.url)

		for _, link := range w.sameSiteLinks(seed, res.links) {
			if !tracker.IsVisited(link) {
				queue = append(queue, queueItem{url: link, depth: item.depth + 1})
			}
		}
	}

	logger.Info("crawl completed",
		zap.String("seed", seedURL),
		zap.Int("unique_urls", tracker.GetUniqueURLsCount()),
		zap.Int("failed_urls", tracker.GetFailedCount()))

	return pages
}

func (w *Crawler) newCollector(ctx context.Context, logger *zap.Logger) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(w.config.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(w.config.RequestTimeout)

	c.OnResponse(w.OnResponse(logger))
	c.OnHTML("a[href]", w.OnHTML())
	c.OnError(w.OnError(logger))

	return c
}

// fetch issues a synchronous GET for pageURL. Non-2xx answers and network
// failures come back as errors.
func (w *Crawler) fetch(collector *colly.Collector, pageURL string) (*fetchResult, error) {
	reqCtx := colly.NewContext()
	if err := collector.Request(http.MethodGet, pageURL, nil, reqCtx, nil); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	body, _ := reqCtx.GetAny(bodyKey).([]byte)
	status, _ := reqCtx.GetAny(statusKey).(int)
	links, _ := reqCtx.GetAny(linksKey).([]string)

	return &fetchResult{body: body, status: status, links: links}, nil
}

// sameSiteLinks keeps http(s) links on the seed's registrable domain, first
// occurrence first.
func (w *Crawler) sameSiteLinks(seed *url.URL, links []string) []string {
	seen := make(map[string]struct{}, len(links))
	out := make([]string, 0, len(links))
	for _, link := range links {
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}

		u, err := url.Parse(link)
		if err != nil || !w.validator.IsFollowable(u) {
			continue
		}
		if !SameSite(seed, u) {
			continue
		}
		out = append(out, link)
	}
	return out
}
