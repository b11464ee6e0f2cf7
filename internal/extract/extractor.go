// Package extract discovers contact email addresses on a law firm's website
// and picks the one most likely to reach the firm.
package extract

import (
	"context"
	"errors"
	"html"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/fetcher"
	"github.com/sells-group/leadgen-cli/internal/model"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// PageStatus classifies the outcome of one page fetch.
type PageStatus string

const (
	PageOK      PageStatus = "ok"
	PageBlocked PageStatus = "blocked"
	PageHTTP    PageStatus = "http_error"
	PageTimeout PageStatus = "timeout"
	PageNetwork PageStatus = "network_error"
)

// PageOutcome records what happened to one requested page.
type PageOutcome struct {
	URL    string
	Status PageStatus
	Found  int
	Err    error
}

// Result is everything learned about one website.
type Result struct {
	// Candidates are the filtered addresses in discovery order.
	Candidates []string
	// Best is the chosen address, or "" when there are no candidates.
	Best  string
	Pages []PageOutcome
}

// Extractor fetches a fixed set of pages per site and mines them for emails.
type Extractor struct {
	fetcher fetcher.Fetcher
	rules   *Rules
}

// New creates an Extractor. A nil rules uses DefaultRules.
func New(f fetcher.Fetcher, rules *Rules) *Extractor {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Extractor{fetcher: f, rules: rules}
}

// Extract visits every configured path of website. Page failures are recorded
// in the result and never abort the remaining pages. An unusable website
// yields an empty Result.
func (e *Extractor) Extract(ctx context.Context, website string) Result {
	base := NormalizeURL(website)
	if base == "" {
		return Result{}
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return Result{}
	}

	var res Result
	seen := make(map[string]struct{})
	for _, p := range e.rules.Paths {
		target := base
		if p != "" {
			target = baseURL.ResolveReference(&url.URL{Path: p}).String()
		}

		page, err := e.fetcher.Fetch(ctx, target)
		if err != nil {
			out := PageOutcome{URL: target, Status: classify(err), Err: err}
			res.Pages = append(res.Pages, out)
			zap.L().Debug("extract: page skipped",
				zap.String("url", target),
				zap.String("status", string(out.Status)),
				zap.Error(err),
			)
			continue
		}

		found := 0
		for _, raw := range FindEmails(page.Body) {
			email, ok := e.rules.Clean(raw)
			if !ok {
				continue
			}
			if _, dup := seen[email]; dup {
				continue
			}
			seen[email] = struct{}{}
			res.Candidates = append(res.Candidates, email)
			found++
		}
		res.Pages = append(res.Pages, PageOutcome{URL: target, Status: PageOK, Found: found})
	}

	res.Best = ChooseBest(res.Candidates, model.NormalizeDomain(base), e.rules.PreferredPrefixes)
	return res
}

// NormalizeURL turns a directory website cell into an absolute http(s) URL
// without a trailing slash. It returns "" for values that cannot be fetched.
func NormalizeURL(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	website = strings.TrimRight(website, "/")

	u, err := url.Parse(website)
	if err != nil || u.Hostname() == "" || strings.ContainsAny(u.Hostname(), " \t") {
		return ""
	}
	if s := strings.ToLower(u.Scheme); s != "http" && s != "https" {
		return ""
	}
	return website
}

// FindEmails returns raw address matches in body: pattern matches over the
// entity-decoded text first, then mailto: link targets. Results are not
// filtered or de-duplicated.
func FindEmails(body string) []string {
	out := emailPattern.FindAllString(html.UnescapeString(body), -1)
	return append(out, mailtoAddresses(body)...)
}

func classify(err error) PageStatus {
	var blocked *fetcher.BlockedError
	var status *fetcher.StatusError
	switch {
	case errors.As(err, &blocked):
		return PageBlocked
	case errors.As(err, &status):
		if status.StatusCode == 429 {
			return PageBlocked
		}
		return PageHTTP
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(err.Error(), "deadline exceeded"):
		return PageTimeout
	default:
		return PageNetwork
	}
}
