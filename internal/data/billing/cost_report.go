package billing

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

const (
	costReportPath = "/v1/organizations/cost_report"
	cursorPrefix   = "page_"
)

var hundred = decimal.NewFromInt(100)

// CostReportSource reads the cost report endpoint, whose amounts are
// decimal strings in cents. Its cursor encodes the next starting_at.
type CostReportSource struct {
	// DescriptionFilter keeps only entries whose description contains it,
	// case-insensitively. Empty keeps everything.
	DescriptionFilter string
}

type costReportResponse struct {
	Data     []costReportBucket `json:"data"`
	HasMore  *bool              `json:"has_more"`
	NextPage *string            `json:"next_page"`
}

type costReportBucket struct {
	StartingAt string             `json:"starting_at"`
	Results    []costReportResult `json:"results"`
}

type costReportResult struct {
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	Currency    string           `json:"currency"`
}

func (s *CostReportSource) Name() string { return "cost_report" }

func (s *CostReportSource) Plan(start, now time.Time) []Query {
	return []Query{{Start: start, End: now}}
}

func (s *CostReportSource) NewRequest(ctx context.Context, baseURL string, cred Credential, q Query, cursor string) (*http.Request, error) {
	startingAt := formatWireTime(q.Start)
	if cursor != "" {
		startingAt = cursor
	}

	params := url.Values{}
	params.Set("starting_at", startingAt)
	params.Set("ending_at", formatWireTime(q.End))
	params.Add("group_by[]", "description")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+costReportPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating cost report request: %w", err)
	}
	setHeaders(req, cred)
	return req, nil
}

func (s *CostReportSource) DecodePage(body []byte) (Page, error) {
	var resp costReportResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Data == nil || resp.HasMore == nil {
		return Page{}, fmt.Errorf("%w: missing data or has_more", ErrMalformedResponse)
	}

	filter := strings.ToLower(s.DescriptionFilter)
	cents := decimal.Zero
	for _, bucket := range resp.Data {
		for _, r := range bucket.Results {
			if r.Amount == nil {
				continue
			}
			if filter != "" && (r.Description == nil || !strings.Contains(strings.ToLower(*r.Description), filter)) {
				continue
			}
			cents = cents.Add(*r.Amount)
		}
	}

	page := Page{Amount: cents.Div(hundred), HasMore: *resp.HasMore}
	if page.HasMore {
		if resp.NextPage == nil || *resp.NextPage == "" {
			return Page{}, fmt.Errorf("%w: has_more without next_page", ErrMalformedResponse)
		}
		next, err := DecodeCursor(*resp.NextPage)
		if err != nil {
			return Page{}, err
		}
		page.Next = next
	}
	return page, nil
}

// DecodeCursor turns an opaque "page_<base64>" cursor into the literal
// starting_at value it encodes.
func DecodeCursor(cursor string) (string, error) {
	raw := strings.TrimPrefix(cursor, cursorPrefix)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if decoded, err := enc.DecodeString(raw); err == nil && len(decoded) > 0 {
			return string(decoded), nil
		}
	}
	return "", fmt.Errorf("%w: undecodable cursor %q", ErrMalformedResponse, cursor)
}

// EncodeCursor is the inverse of DecodeCursor.
func EncodeCursor(startingAt string) string {
	return cursorPrefix + base64.StdEncoding.EncodeToString([]byte(startingAt))
}
