package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundtracker/internal/core"
	"fundtracker/internal/summary"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"id": "123", "name": "test", "amount": 42.5}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}

	if id := parser.Get("id"); id != "123" {
		t.Errorf("Get('id') = %q, want '123'", id)
	}

	if name := parser.Get("name"); name != "test" {
		t.Errorf("Get('name') = %q, want 'test'", name)
	}

	if amount := parser.Get("amount"); amount != "42.5" {
		t.Errorf("Get('amount') = %q, want '42.5'", amount)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "id=456&name=form+test&value=100"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}

	if id := parser.Get("id"); id != "456" {
		t.Errorf("Get('id') = %q, want '456'", id)
	}

	if name := parser.Get("name"); name != "form test" {
		t.Errorf("Get('name') = %q, want 'form test'", name)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"amount":`))

	err := NewRequestBodyParser(req).Parse()
	require.Error(t, err)
	assert.Equal(t, core.KindValidation, core.KindOf(err))
}

func TestRequestBodyParser_StripsControlCharacters(t *testing.T) {
	body := url.Values{"description": {"  fuel\x00 card\x07 "}}.Encode()
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))

	parser := NewRequestBodyParser(req)
	require.NoError(t, parser.Parse())
	assert.Equal(t, "fuel card", parser.Get("description"))
}

func TestParseDraft(t *testing.T) {
	now := time.Date(2024, 2, 29, 18, 30, 0, 0, time.UTC)
	fields := func(v map[string]string) func(string) string {
		return func(k string) string { return v[k] }
	}

	d, err := ParseDraft(fields(map[string]string{
		"date":        "2024-01-15",
		"description": "Banner print",
		"amount":      "1234,5",
		"category":    "Marketing/Advertisement",
		"method":      "Cheque",
		"notes":       "invoice 12",
	}), now)
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 1, 15), d.Date)
	assert.Equal(t, int64(123450), d.Amount.Cents)
	assert.Equal(t, "invoice 12", d.Notes)

	d, err = ParseDraft(fields(map[string]string{"amount": "1"}), now)
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 2, 29), d.Date, "empty date means today")

	tests := []struct {
		name   string
		values map[string]string
		want   error
	}{
		{"bad date", map[string]string{"date": "15/01/2024", "amount": "1"}, core.ErrInvalidDate},
		{"missing amount", map[string]string{"date": "2024-01-15"}, core.ErrInvalidAmount},
		{"negative amount", map[string]string{"amount": "-5"}, core.ErrNegativeAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDraft(fields(tt.values), now)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, errors.Is(err, core.ErrValidation))
		})
	}
}

func TestParseSeq(t *testing.T) {
	seq, err := ParseSeq(" 4 ")
	require.NoError(t, err)
	assert.Equal(t, 4, seq)

	for _, raw := range []string{"", "0", "-1", "two"} {
		_, err := ParseSeq(raw)
		assert.ErrorIs(t, err, core.ErrInvalidSeq, raw)
	}
}

func TestParseSummaryOptions(t *testing.T) {
	opts, err := ParseSummaryOptions(url.Values{
		"partition": {"quarter"},
		"split":     {"even"},
		"years":     {"2024, 2025"},
	})
	require.NoError(t, err)
	assert.Equal(t, summary.PartitionYearQuarter, opts.Partition)
	assert.Equal(t, summary.SplitEven, opts.Split)
	assert.Equal(t, []int{2024, 2025}, opts.Years)
	assert.Equal(t, "partition=quarter&split=even&years=2024%2C2025", summaryQuery(opts))

	opts, err = ParseSummaryOptions(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, summary.PartitionNone, opts.Partition)
	assert.Empty(t, opts.Years)

	for _, q := range []url.Values{
		{"partition": {"monthly"}},
		{"split": {"weighted"}},
		{"years": {"20x4"}},
	} {
		_, err := ParseSummaryOptions(q)
		assert.Equal(t, core.KindValidation, core.KindOf(err), q.Encode())
	}
}
