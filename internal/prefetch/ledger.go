// Package prefetch decides which fish images a page session should ask the
// browser to fetch early, and when.
package prefetch

// Ledger records every image URL already issued in one page session. Entries
// are permanent until Clear; the transport hint of a directive expires on
// its own schedule without touching the ledger.
//
// Ledger is not safe for concurrent use. It belongs to one session event loop.
type Ledger struct {
	urls  map[string]struct{}
	order []string
}

func NewLedger() *Ledger {
	return &Ledger{urls: make(map[string]struct{})}
}

func (l *Ledger) Has(url string) bool {
	_, ok := l.urls[url]
	return ok
}

// Mark inserts url and reports whether it was new.
func (l *Ledger) Mark(url string) bool {
	if _, ok := l.urls[url]; ok {
		return false
	}
	l.urls[url] = struct{}{}
	l.order = append(l.order, url)
	return true
}

func (l *Ledger) Len() int {
	return len(l.urls)
}

// Stats is a snapshot of the ledger in issue order.
type Stats struct {
	CachedURLs int      `json:"cachedUrls"`
	URLs       []string `json:"urls"`
}

func (l *Ledger) Stats() Stats {
	urls := make([]string, len(l.order))
	copy(urls, l.order)
	return Stats{CachedURLs: len(urls), URLs: urls}
}

func (l *Ledger) Clear() {
	l.urls = make(map[string]struct{})
	l.order = nil
}
