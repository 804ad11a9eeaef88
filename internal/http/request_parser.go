// Package http serves the fund tracker UI and JSON API.
//
// This file turns request data into domain values: drafts, sequence
// numbers and summary options. Failures are validation errors.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fundtracker/internal/core"
	"fundtracker/internal/summary"
)

const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, up to 64 KiB.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = core.Invalid(fmt.Errorf("malformed JSON body: %w", err))
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = core.Invalid(fmt.Errorf("malformed form body: %w", p.err))
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput strips control characters other than tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// ParseDraft builds a draft from the named fields. An empty date means
// today. Catalog checks are left to the store.
func ParseDraft(get func(string) string, now time.Time) (core.Draft, error) {
	d := core.Draft{
		Description: get("description"),
		Category:    get("category"),
		Method:      get("method"),
		Notes:       get("notes"),
	}

	if raw := get("date"); raw != "" {
		date, err := core.ParseDate(raw)
		if err != nil {
			return core.Draft{}, core.Invalid(fmt.Errorf("%w %q", core.ErrInvalidDate, raw))
		}
		d.Date = date
	} else {
		d.Date = core.NewDate(now.Year(), int(now.Month()), now.Day())
	}

	amount, err := core.ParseAmount(get("amount"))
	if err != nil {
		return core.Draft{}, core.Invalid(err)
	}
	d.Amount = amount
	return d, nil
}

// ParseSeq reads a 1-based transaction number.
func ParseSeq(raw string) (int, error) {
	seq, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || seq < 1 {
		return 0, core.Invalid(fmt.Errorf("%w %q", core.ErrInvalidSeq, raw))
	}
	return seq, nil
}

// ParseSummaryOptions reads partition, years (comma separated) and
// split from a query string.
func ParseSummaryOptions(q url.Values) (summary.Options, error) {
	var opts summary.Options
	p, err := summary.ParsePartition(q.Get("partition"))
	if err != nil {
		return opts, err
	}
	opts.Partition = p

	split, err := summary.ParseSplit(q.Get("split"))
	if err != nil {
		return opts, err
	}
	opts.Split = split

	for _, part := range strings.Split(q.Get("years"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil || y < 1 || y > 9999 {
			return opts, core.Invalid(fmt.Errorf("invalid year %q", part))
		}
		opts.Years = append(opts.Years, y)
	}
	return opts, nil
}
