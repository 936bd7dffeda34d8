package crawler

import (
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const (
	bodyKey   = "body"
	statusKey = "status"
	linksKey  = "links"
)

// OnResponse stores the fetched body on the request context so the crawl
// loop can read it once the synchronous request returns.
func (w *Crawler) OnResponse(logger *zap.Logger) colly.ResponseCallback {
	return func(r *colly.Response) {
		logger.Debug("fetched page",
			zap.String("url", r.Request.URL.String()),
			zap.Int("status_code", r.StatusCode),
			zap.Int("bytes", len(r.Body)))

		r.Ctx.Put(bodyKey, r.Body)
		r.Ctx.Put(statusKey, r.StatusCode)
	}
}

// OnHTML collects every href of the fetched page, resolved against that page.
func (w *Crawler) OnHTML() colly.HTMLCallback {
	return func(e *colly.HTMLElement) {
		absoluteURL := e.Request.AbsoluteURL(e.Attr("href"))
		if absoluteURL == "" {
			return
		}

		links, _ := e.Request.Ctx.GetAny(linksKey).([]string)
		e.Request.Ctx.Put(linksKey, append(links, absoluteURL))
	}
}

// OnError logs failed fetches; the crawl loop skips the page.
func (w *Crawler) OnError(logger *zap.Logger) colly.ErrorCallback {
	return func(r *colly.Response, err error) {
		if r == nil || r.Request == nil {
			logger.Warn("request failed", zap.Error(err))
			return
		}

		logger.Warn("fetch failed",
			zap.String("url", r.Request.URL.String()),
			zap.Int("status_code", r.StatusCode),
			zap.Error(err))
	}
}
