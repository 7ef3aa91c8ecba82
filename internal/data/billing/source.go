package billing

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultBaseURL is the Anthropic admin API host.
	DefaultBaseURL = "https://api.anthropic.com"

	apiVersion = "2023-06-01"

	// timestamps on the wire are UTC, second precision
	wireTimeLayout = "2006-01-02T15:04:05Z"
)

// Credential authenticates against the billing API.
type Credential struct {
	AdminKey string
	APIKeyID string // optional usage-report scoping
}

// Query is one time-boxed request series. A source may split a fetch into
// several queries, each paginated independently.
type Query struct {
	Start       time.Time
	End         time.Time
	BucketWidth string // "1d" or "1h"; empty when the endpoint has no buckets
}

// Page is one decoded response page.
type Page struct {
	Amount  decimal.Decimal // USD
	HasMore bool
	Next    string // cursor for the following request
}

// Source is one response schema of the remote billing API. Cursor handling
// differs per source and lives entirely here.
type Source interface {
	Name() string

	// Plan splits [start, now) into the queries needed to cover it.
	Plan(start, now time.Time) []Query

	// NewRequest builds the request for a query page. cursor is empty for
	// the first page and otherwise the Next of the previous page.
	NewRequest(ctx context.Context, baseURL string, cred Credential, q Query, cursor string) (*http.Request, error)

	// DecodePage validates and decodes one response body.
	DecodePage(body []byte) (Page, error)
}

func formatWireTime(t time.Time) string {
	return t.UTC().Format(wireTimeLayout)
}

func setHeaders(req *http.Request, cred Credential) {
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("x-api-key", cred.AdminKey)
	req.Header.Set("Accept", "application/json")
}
