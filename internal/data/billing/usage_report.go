package billing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"github.com/penwyp/go-molty-meter/internal/core/model"
	"github.com/penwyp/go-molty-meter/internal/core/pricing"
)

const usageReportPath = "/v1/organizations/usage_report/messages"

// UsageReportSource reads per-token-class usage and prices it locally. Days
// before today are fetched in daily buckets, today in hourly buckets.
type UsageReportSource struct {
	Models  []string // models[] filter; the first also prices results without a model
	Pricing pricing.PricingProvider
}

type usageReportResponse struct {
	Data     []usageReportBucket `json:"data"`
	HasMore  *bool               `json:"has_more"`
	NextPage *string             `json:"next_page"`
}

type usageReportBucket struct {
	StartingAt string              `json:"starting_at"`
	EndingAt   string              `json:"ending_at"`
	Results    []usageReportResult `json:"results"`
}

type usageReportResult struct {
	Model                *string        `json:"model"`
	UncachedInputTokens  model.FlexInt  `json:"uncached_input_tokens"`
	CacheReadInputTokens model.FlexInt  `json:"cache_read_input_tokens"`
	OutputTokens         model.FlexInt  `json:"output_tokens"`
	CacheCreation        *cacheCreation `json:"cache_creation"`
}

// cacheCreation splits cache writes by time to live; both count as writes.
type cacheCreation struct {
	Ephemeral5m model.FlexInt `json:"ephemeral_5m_input_tokens"`
	Ephemeral1h model.FlexInt `json:"ephemeral_1h_input_tokens"`
}

// NewUsageReportSource creates a usage report source priced by p.
func NewUsageReportSource(models []string, p pricing.PricingProvider) *UsageReportSource {
	if p == nil {
		p = pricing.NewDefaultProvider()
	}
	return &UsageReportSource{Models: models, Pricing: p}
}

func (s *UsageReportSource) Name() string { return "usage_report" }

// Plan covers whole days up to today's UTC midnight with daily buckets and
// the rest of today with hourly buckets.
func (s *UsageReportSource) Plan(start, now time.Time) []Query {
	start, now = start.UTC(), now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var queries []Query
	if start.Before(today) {
		queries = append(queries, Query{Start: start, End: today, BucketWidth: "1d"})
		start = today
	}
	if start.Before(now) {
		queries = append(queries, Query{Start: start, End: now, BucketWidth: "1h"})
	}
	return queries
}

func (s *UsageReportSource) NewRequest(ctx context.Context, baseURL string, cred Credential, q Query, cursor string) (*http.Request, error) {
	params := url.Values{}
	params.Set("starting_at", formatWireTime(q.Start))
	params.Set("ending_at", formatWireTime(q.End))
	params.Set("bucket_width", q.BucketWidth)
	params.Set("limit", strconv.Itoa(bucketLimit(q.BucketWidth)))
	params.Add("group_by[]", "model")
	for _, m := range s.Models {
		params.Add("models[]", m)
	}
	if cred.APIKeyID != "" {
		params.Add("api_key_ids[]", cred.APIKeyID)
	}
	if cursor != "" {
		params.Set("page", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+usageReportPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating usage report request: %w", err)
	}
	setHeaders(req, cred)
	return req, nil
}

func (s *UsageReportSource) DecodePage(body []byte) (Page, error) {
	var resp usageReportResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Data == nil || resp.HasMore == nil {
		return Page{}, fmt.Errorf("%w: missing data or has_more", ErrMalformedResponse)
	}

	total := decimal.Zero
	for _, bucket := range resp.Data {
		for _, r := range bucket.Results {
			total = total.Add(decimal.NewFromFloat(s.price(r)))
		}
	}

	page := Page{Amount: total, HasMore: *resp.HasMore}
	if page.HasMore {
		if resp.NextPage == nil || *resp.NextPage == "" {
			return Page{}, fmt.Errorf("%w: has_more without next_page", ErrMalformedResponse)
		}
		page.Next = *resp.NextPage
	}
	return page, nil
}

func (s *UsageReportSource) price(r usageReportResult) float64 {
	modelName := ""
	if r.Model != nil {
		modelName = *r.Model
	}
	if modelName == "" && len(s.Models) > 0 {
		modelName = s.Models[0]
	}

	tokens := model.TokenTotals{
		Input:     int(r.UncachedInputTokens),
		Output:    int(r.OutputTokens),
		CacheRead: int(r.CacheReadInputTokens),
	}
	if r.CacheCreation != nil {
		tokens.CacheWrite = int(r.CacheCreation.Ephemeral5m) + int(r.CacheCreation.Ephemeral1h)
	}
	return s.Pricing.Cost(modelName, tokens)
}

func bucketLimit(width string) int {
	if width == "1h" {
		return 24
	}
	return 31
}
