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
)

const (
	// OpenAIBaseURL is the OpenAI API host.
	OpenAIBaseURL = "https://api.openai.com"

	openAICostsPath = "/v1/organization/costs"
)

// OpenAICostSource reads the OpenAI organization costs endpoint. Amounts
// are USD values; the cursor is passed back verbatim as the page
// parameter.
type OpenAICostSource struct{}

type openAICostsResponse struct {
	Data     []openAICostsBucket `json:"data"`
	HasMore  bool                `json:"has_more"`
	NextPage *string             `json:"next_page"`
}

type openAICostsBucket struct {
	StartTime int64               `json:"start_time"`
	Results   []openAICostsResult `json:"results"`
}

type openAICostsResult struct {
	Amount *struct {
		Value    *decimal.Decimal `json:"value"`
		Currency string           `json:"currency"`
	} `json:"amount"`
	LineItem *string `json:"line_item"`
}

func (s *OpenAICostSource) Name() string { return "openai_costs" }

func (s *OpenAICostSource) Plan(start, now time.Time) []Query {
	return []Query{{Start: start, End: now, BucketWidth: "1d"}}
}

func (s *OpenAICostSource) NewRequest(ctx context.Context, baseURL string, cred Credential, q Query, cursor string) (*http.Request, error) {
	params := url.Values{}
	params.Set("start_time", strconv.FormatInt(q.Start.Unix(), 10))
	params.Set("end_time", strconv.FormatInt(q.End.Unix(), 10))
	params.Set("bucket_width", "1d")
	params.Set("limit", strconv.Itoa(bucketLimit("1d")))
	if cursor != "" {
		params.Set("page", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+openAICostsPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating openai costs request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AdminKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (s *OpenAICostSource) DecodePage(body []byte) (Page, error) {
	var resp openAICostsResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Data == nil {
		return Page{}, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}

	total := decimal.Zero
	for _, bucket := range resp.Data {
		for _, r := range bucket.Results {
			if r.Amount == nil || r.Amount.Value == nil {
				continue
			}
			total = total.Add(*r.Amount.Value)
		}
	}

	page := Page{Amount: total, HasMore: resp.HasMore}
	if page.HasMore {
		if resp.NextPage == nil || *resp.NextPage == "" {
			return Page{}, fmt.Errorf("%w: has_more without next_page", ErrMalformedResponse)
		}
		page.Next = *resp.NextPage
	}
	return page, nil
}
