package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Lead database property names.
const (
	PropName         = "Name"
	PropWebsite      = "Website"
	PropEmail        = "Email"
	PropPracticeArea = "Practice Area"
	PropState        = "State"
	PropStatus       = "Status"
)

// QueryAll fetches all pages from a Notion database, following cursors
// until the result set is exhausted.
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "notion: query all")
		}

		req := &notionapi.DatabaseQueryRequest{StartCursor: cursor}
		if filter != nil {
			req.Filter = filter.Filter
			req.Sorts = filter.Sorts
			req.PageSize = filter.PageSize
		}

		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}
		all = append(all, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}

// ExistingDomains returns the normalized website domains of every page in
// the lead database.
func ExistingDomains(ctx context.Context, c Client, dbID string) (map[string]struct{}, error) {
	pages, err := QueryAll(ctx, c, dbID, nil)
	if err != nil {
		return nil, eris.Wrap(err, "notion: existing domains")
	}

	domains := make(map[string]struct{}, len(pages))
	for _, page := range pages {
		if d := model.NormalizeDomain(pageWebsite(page)); d != "" {
			domains[d] = struct{}{}
		}
	}
	return domains, nil
}

func pageWebsite(page notionapi.Page) string {
	prop, ok := page.Properties[PropWebsite]
	if !ok {
		return ""
	}
	switch p := prop.(type) {
	case *notionapi.URLProperty:
		return strings.TrimSpace(p.URL)
	case notionapi.URLProperty:
		return strings.TrimSpace(p.URL)
	case *notionapi.RichTextProperty:
		var sb strings.Builder
		for _, rt := range p.RichText {
			sb.WriteString(rt.PlainText)
		}
		return strings.TrimSpace(sb.String())
	}
	return ""
}
