// Package discovery looks up organization candidates on an external web
// search surface for queries the local index cannot answer.
package discovery

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jonathan/prospector/internal/fetch"
)

// DefaultSearchURL is the DuckDuckGo HTML endpoint.
const DefaultSearchURL = "https://html.duckduckgo.com/html/"

// resultSelector matches organic result links on the DuckDuckGo HTML page.
const resultSelector = "a.result__a"

// titleSeparators split a result title into the organization name and a tagline.
var titleSeparators = []string{" - ", " | ", " : ", " — ", " – "}

// Candidates holds deduplicated organization names and domains.
type Candidates struct {
	Names   []string
	Domains []string
	Skipped int // result entries that could not be parsed
}

// Empty reports whether no names or domains were found.
func (c Candidates) Empty() bool {
	return len(c.Names) == 0 && len(c.Domains) == 0
}

// Finder is the contract the advanced search depends on.
type Finder interface {
	FindCandidates(ctx context.Context, freeText string) (Candidates, error)
}

// Options configures a DuckDuckGo finder.
type Options struct {
	SearchURL         string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxCandidates     int
}

// DuckDuckGo scrapes the DuckDuckGo HTML results page.
type DuckDuckGo struct {
	opts    Options
	limiter *rate.Limiter
	fetch   *fetch.Options
	logger  *zap.SugaredLogger
}

// NewDuckDuckGo creates a finder. Zero-valued options fall back to defaults.
func NewDuckDuckGo(opts Options, logger *zap.SugaredLogger) *DuckDuckGo {
	if opts.SearchURL == "" {
		opts.SearchURL = DefaultSearchURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &DuckDuckGo{
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		fetch: &fetch.Options{
			Timeout:   opts.Timeout,
			UserAgent: opts.UserAgent,
			Headers:   map[string]string{"Accept": "text/html"},
		},
		logger: logger,
	}
}

// FindCandidates issues one search for freeText and returns the names and
// domains found in the results. No results is not an error.
func (d *DuckDuckGo) FindCandidates(ctx context.Context, freeText string) (Candidates, error) {
	freeText = strings.TrimSpace(freeText)
	if freeText == "" {
		return Candidates{}, nil
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return Candidates{}, errors.Wrap(err, "waiting for search rate limit")
	}

	searchURL, err := url.Parse(d.opts.SearchURL)
	if err != nil {
		return Candidates{}, errors.Wrapf(err, "invalid search url %q", d.opts.SearchURL)
	}
	q := searchURL.Query()
	q.Set("q", freeText)
	searchURL.RawQuery = q.Encode()

	result, err := fetch.URL(ctx, searchURL.String(), d.fetch)
	if err != nil {
		return Candidates{}, errors.Wrap(err, "searching duckduckgo")
	}

	candidates, err := ParseResults(result.HTML, d.opts.MaxCandidates)
	if err != nil {
		return Candidates{}, err
	}
	d.logger.Debugw("Found search candidates",
		"query", freeText,
		"names", len(candidates.Names),
		"domains", len(candidates.Domains),
		"skipped", candidates.Skipped)
	return candidates, nil
}

// ParseResults extracts candidates from a DuckDuckGo HTML results page.
// limit caps each set; zero means no cap.
func ParseResults(html string, limit int) (Candidates, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Candidates{}, errors.Wrap(err, "parsing search results")
	}

	var out Candidates
	names := newOrderedSet(limit)
	domains := newOrderedSet(limit)
	doc.Find(resultSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			out.Skipped++
			return
		}
		host, ok := resultHost(href)
		if !ok {
			out.Skipped++
			return
		}
		domains.add(host)
		if name := leadingSegment(sel.Text()); name != "" {
			names.add(name)
		}
	})
	out.Names = names.items
	out.Domains = domains.items
	return out, nil
}

// resultHost resolves a result link, unwrapping DuckDuckGo redirect links,
// and returns its hostname without a leading "www.".
func resultHost(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if target := u.Query().Get("uddg"); target != "" && strings.HasSuffix(u.Hostname(), "duckduckgo.com") {
		if u, err = url.Parse(target); err != nil {
			return "", false
		}
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	return strings.TrimPrefix(host, "www."), true
}

// leadingSegment returns the title text before the first separator.
func leadingSegment(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	for _, sep := range titleSeparators {
		if idx := strings.Index(title, sep); idx > 0 {
			title = title[:idx]
		}
	}
	return strings.TrimSpace(title)
}

type orderedSet struct {
	limit int
	seen  map[string]struct{}
	items []string
}

func newOrderedSet(limit int) *orderedSet {
	return &orderedSet{limit: limit, seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if s.limit > 0 && len(s.items) >= s.limit {
		return
	}
	key := strings.ToLower(v)
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.items = append(s.items, v)
}
