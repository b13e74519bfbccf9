package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/chronobill/chronobill/internal/cache"
	"github.com/chronobill/chronobill/internal/config"
	"github.com/chronobill/chronobill/internal/domain/customer"
	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/chronobill/chronobill/internal/httpclient"
	"github.com/chronobill/chronobill/internal/logger"
)

// client resolves customers from an external directory service over HTTP.
// Lookups are cached so a scheduler run does not hammer the directory with
// one request per due plan.
type client struct {
	http   httpclient.Client
	cache  cache.Cache
	config config.DirectoryConfig
	logger *logger.Logger
}

// NewDirectory creates an HTTP-backed customer directory
func NewDirectory(
	http httpclient.Client,
	c cache.Cache,
	cfg *config.Configuration,
	log *logger.Logger,
) customer.Directory {
	return &client{
		http:   http,
		cache:  c,
		config: cfg.Directory,
		logger: log,
	}
}

func (c *client) Get(ctx context.Context, id string) (*customer.Customer, error) {
	if id == "" {
		return nil, ierr.NewError("customer id is required").
			WithHint("Customer ID is required").
			Mark(ierr.ErrValidation)
	}

	cacheKey := cache.GenerateKey(cache.PrefixCustomer, id)
	if cached, found := c.cache.Get(ctx, cacheKey); found {
		if cust, ok := cached.(*customer.Customer); ok {
			return cust, nil
		}
	}

	req := &httpclient.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/customers/%s", c.config.BaseURL, url.PathEscape(id)),
		Headers: map[string]string{
			"Accept": "application/json",
		},
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.http.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ierr.NewError("customer not found").
			WithHintf("Customer with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	if !resp.IsSuccess() {
		return nil, ierr.NewError("directory lookup failed").
			WithHint("Customer directory returned an error").
			WithReportableDetails(map[string]any{
				"customer_id": id,
				"status_code": resp.StatusCode,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	var cust customer.Customer
	if err := json.Unmarshal(resp.Body, &cust); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode directory response").
			Mark(ierr.ErrHTTPClient)
	}

	c.cache.Set(ctx, cacheKey, &cust, c.config.CacheTTL)
	return &cust, nil
}
