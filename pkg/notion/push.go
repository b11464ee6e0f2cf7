package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// PushResult counts what PushLeads did.
type PushResult struct {
	Created   int `json:"created"`
	Duplicate int `json:"duplicate"`
	NoDomain  int `json:"no_domain"`
}

// PushOptions tunes PushLeads.
type PushOptions struct {
	// Status is written to the Status property of each new page. Empty
	// leaves the property unset.
	Status string
	// DryRun counts what would be created without calling CreatePage.
	DryRun bool
}

// PushLeads creates a page in the lead database for every lead whose
// website domain is not already present. Leads are deduplicated against the
// database and against each other. A create failure aborts the push; pages
// created before it are kept and counted.
func PushLeads(ctx context.Context, c Client, dbID string, leads []model.Lead, opts PushOptions) (PushResult, error) {
	var res PushResult

	seen, err := ExistingDomains(ctx, c, dbID)
	if err != nil {
		return res, eris.Wrap(err, "notion: push leads")
	}
	zap.L().Debug("notion: existing lead domains", zap.Int("count", len(seen)))

	for _, lead := range leads {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "notion: push leads cancelled")
		}

		domain := lead.Domain()
		if domain == "" {
			res.NoDomain++
			continue
		}
		if _, dup := seen[domain]; dup {
			res.Duplicate++
			continue
		}
		seen[domain] = struct{}{}

		if !opts.DryRun {
			req := &notionapi.PageCreateRequest{
				Parent: notionapi.Parent{
					Type:       notionapi.ParentTypeDatabaseID,
					DatabaseID: notionapi.DatabaseID(dbID),
				},
				Properties: buildLeadProperties(lead, opts.Status),
			}
			if _, err := c.CreatePage(ctx, req); err != nil {
				return res, eris.Wrapf(err, "notion: create lead %s", domain)
			}
		}
		res.Created++
	}

	return res, nil
}

// buildLeadProperties maps a directory lead onto the lead database schema.
func buildLeadProperties(lead model.Lead, status string) notionapi.Properties {
	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Type: notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: strings.TrimSpace(lead.FirmName)}},
			},
		},
		PropWebsite: notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  websiteURL(lead.Website),
		},
	}

	if lead.Email != "" {
		props[PropEmail] = notionapi.EmailProperty{
			Type:  notionapi.PropertyTypeEmail,
			Email: lead.Email,
		}
	}
	if v := strings.TrimSpace(lead.PracticeArea); v != "" {
		props[PropPracticeArea] = richText(v)
	}
	if v := strings.TrimSpace(lead.State); v != "" {
		props[PropState] = richText(v)
	}
	if status != "" {
		props[PropStatus] = notionapi.StatusProperty{
			Status: notionapi.Status{Name: status},
		}
	}
	return props
}

func richText(v string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type: notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: v}},
		},
	}
}

// websiteURL ensures a website has an https:// scheme prefix.
func websiteURL(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		return "https://" + website
	}
	return website
}
