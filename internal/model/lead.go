package model

import (
	"net/url"
	"strings"
	"time"
)

// DateLayout is the on-disk format of the extraction_attempted column.
const DateLayout = "2006-01-02"

// Column names of the law-firm directory table.
const (
	ColFirmName     = "firm_name"
	ColWebsite      = "website"
	ColPracticeArea = "practice_area"
	ColState        = "state"
	ColAttempted    = "extraction_attempted"
	ColStatus       = "extraction_status"
	ColEmail        = "email"
	ColAllEmails    = "all_emails"
)

// RequiredColumns must be present in every directory table header.
var RequiredColumns = []string{ColFirmName, ColWebsite, ColAttempted, ColStatus}

// EnrichmentColumns are appended to tables that predate email extraction.
var EnrichmentColumns = []string{ColEmail, ColAllEmails}

// ExtractionStatus is the lifecycle state of a lead's email extraction.
type ExtractionStatus string

const (
	StatusPending ExtractionStatus = "pending"
	StatusSuccess ExtractionStatus = "success"
	StatusFailed  ExtractionStatus = "failed"
)

// Valid reports whether s is a known status. Empty is accepted and reads as pending.
func (s ExtractionStatus) Valid() bool {
	switch s {
	case "", StatusPending, StatusSuccess, StatusFailed:
		return true
	default:
		return false
	}
}

// Lead is one row of the law-firm directory.
type Lead struct {
	FirmName     string `json:"firm_name"`
	Website      string `json:"website"`
	PracticeArea string `json:"practice_area,omitempty"`
	State        string `json:"state,omitempty"`

	// Attempted holds the raw extraction_attempted cell (YYYY-MM-DD or empty).
	Attempted string           `json:"extraction_attempted,omitempty"`
	Status    ExtractionStatus `json:"extraction_status"`
	Email     string           `json:"email,omitempty"`
	AllEmails []string         `json:"all_emails,omitempty"`

	// Extra carries columns this tool does not interpret, keyed by header name.
	Extra map[string]string `json:"extra,omitempty"`
}

// EffectiveStatus returns the lead status with an empty cell treated as pending.
func (l Lead) EffectiveStatus() ExtractionStatus {
	if l.Status == "" {
		return StatusPending
	}
	return l.Status
}

// AttemptedAt parses the last attempt date as a UTC calendar date. ok is false
// when the cell is empty or unparseable.
func (l Lead) AttemptedAt() (t time.Time, ok bool) {
	raw := strings.TrimSpace(l.Attempted)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CalendarDate returns midnight UTC of t's calendar date in t's own location,
// so day arithmetic is not skewed by DST transitions.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Domain returns the normalized host of the lead website.
func (l Lead) Domain() string {
	return NormalizeDomain(l.Website)
}

// NormalizeDomain reduces a website (with or without scheme) to its lowercase
// host with any leading "www." removed. Unparseable input yields "".
func NormalizeDomain(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// Table is the full directory: the header order as found on disk plus every row.
type Table struct {
	Columns []string
	Leads   []Lead
}

// SuccessfulLeads returns the leads whose extraction succeeded with an email.
func (t *Table) SuccessfulLeads() []Lead {
	var out []Lead
	for _, l := range t.Leads {
		if l.EffectiveStatus() == StatusSuccess && l.Email != "" {
			out = append(out, l)
		}
	}
	return out
}
