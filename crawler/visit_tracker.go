package crawler

import (
	"sync"
)

// VisitTracker keeps the exact-string visited set of one crawl plus the URLs
// whose fetch already failed.
type VisitTracker struct {
	visitedURL map[string]struct{}
	failedURL  map[string]struct{}
	mutex      sync.RWMutex
}

// NewVisitTracker creates a new visit tracker
func NewVisitTracker() *VisitTracker {
	return &VisitTracker{
		visitedURL: make(map[string]struct{}),
		failedURL:  make(map[string]struct{}),
	}
}

// ShouldVisit reports whether url has neither been visited nor failed.
func (vt *VisitTracker) ShouldVisit(url string) bool {
	vt.mutex.RLock()
	defer vt.mutex.RUnlock()

	_, visited := vt.visitedURL[url]
	_, failed := vt.failedURL[url]
	return !visited && !failed
}

// RecordVisit records a successful fetch of url.
func (vt *VisitTracker) RecordVisit(url string) {
	vt.mutex.Lock()
	defer vt.mutex.Unlock()

	vt.visitedURL[url] = struct{}{}
}

// RecordFailure records a fetch of url that produced no content.
func (vt *VisitTracker) RecordFailure(url string) {
	vt.mutex.Lock()
	defer vt.mutex.Unlock()

	vt.failedURL[url] = struct{}{}
}

// IsVisited reports whether url was fetched successfully.
func (vt *VisitTracker) IsVisited(url string) bool {
	vt.mutex.RLock()
	defer vt.mutex.RUnlock()

	_, ok := vt.visitedURL[url]
	return ok
}

// GetUniqueURLsCount returns the number of unique URLs visited
func (vt *VisitTracker) GetUniqueURLsCount() int {
	vt.mutex.RLock()
	defer vt.mutex.RUnlock()

	return len(vt.visitedURL)
}

// GetFailedCount returns the number of URLs that could not be fetched.
func (vt *VisitTracker) GetFailedCount() int {
	vt.mutex.RLock()
	defer vt.mutex.RUnlock()

	return len(vt.failedURL)
}
