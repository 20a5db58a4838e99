package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"resource-availability-backend/config"
	"resource-availability-backend/internal/parse"
	"resource-availability-backend/internal/resource"
)

// Client talks to the upstream resource manager over HTTP.
type Client struct {
	cfg    config.SourceConfig
	client *http.Client
	loc    *time.Location
	logger logrus.FieldLogger
}

// NewClient creates a new upstream client.
func NewClient(cfg config.SourceConfig, logger logrus.FieldLogger) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.Warnf("Invalid proxy URL %q: %v. Source will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	loc, err := parse.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warnf("%v. Falling back to UTC.", err)
		loc = time.UTC
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		loc:    loc,
		logger: logger,
	}
}

// StartPaging implements Pager.
func (c *Client) StartPaging(ctx context.Context, filter Filter, ordering Ordering) Page {
	c.logger.Infof("Preparing paging for resources with filter '%s'", filter)
	return c.page(ctx, Cursor{filter: filter, ordering: ordering, page: 1})
}

// NextPage implements Pager.
func (c *Client) NextPage(ctx context.Context, cursor Cursor) Page {
	if cursor.page < 1 {
		return Page{}
	}
	return c.page(ctx, cursor)
}

func (c *Client) page(ctx context.Context, cursor Cursor) Page {
	resp, err := c.fetchPage(ctx, cursor.filter, cursor.ordering, cursor.page)
	if err != nil {
		// Same behavior as a restricted user on the upstream: an empty dataset.
		if errors.Is(err, ErrNotAllowed) {
			c.logger.Infof("No permission to page resources with filter '%s'", cursor.filter)
		} else {
			c.logger.WithError(err).Errorf("Error fetching page %d", cursor.page)
		}
		return Page{}
	}

	resources := c.convertItems(resp.Data.Items)
	c.logger.Infof("Getting next page. Got %d resources", len(resources))

	hasMore := len(resp.Data.Items) > 0 && cursor.page*c.cfg.PageSize < resp.Data.Total
	next := cursor
	next.page++
	return Page{Resources: resources, Next: next, HasMore: hasMore}
}

// FetchAll pages through every resource matching filter. Unlike the Pager
// methods it reports upstream failures, so callers can tell an empty
// catalogue from a failed fetch.
func (c *Client) FetchAll(ctx context.Context, filter Filter) ([]resource.Resource, error) {
	var all []resource.Resource
	total := 1
	pageSize := c.cfg.PageSize
	for page := 1; (page-1)*pageSize < total; page++ {
		resp, err := c.fetchPage(ctx, filter, OrderByName, page)
		if err != nil {
			return all, fmt.Errorf("fetching page %d: %w", page, err)
		}
		if resp.Data.Total == 0 || len(resp.Data.Items) == 0 {
			break
		}
		total = resp.Data.Total
		all = append(all, c.convertItems(resp.Data.Items)...)
		c.logger.Debugf("Fetched page %d/%d, total resources so far: %d", page, (total+pageSize-1)/pageSize, len(all))
	}
	return all, nil
}

// GetPool implements PoolLookup.
func (c *Client) GetPool(ctx context.Context, id uuid.UUID) (*resource.Pool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/pools/"+id.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	var poolResp PoolResponse
	if err := c.do(req, &poolResp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	switch poolResp.Code {
	case CodeOK:
	case CodeNotFound:
		return nil, nil
	case CodeNotAllowed:
		return nil, ErrNotAllowed
	default:
		return nil, fmt.Errorf("API returned non-zero application code: %d", poolResp.Code)
	}
	if poolResp.Data == nil {
		return nil, nil
	}

	poolID, err := uuid.Parse(poolResp.Data.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid pool id %q: %w", poolResp.Data.ID, err)
	}
	return &resource.Pool{ID: poolID, Name: poolResp.Data.Name}, nil
}

var errNotFound = errors.New("not found")

// fetchPage fetches a single page of resources from the upstream API.
func (c *Client) fetchPage(ctx context.Context, filter Filter, ordering Ordering, page int) (*ApiResponse, error) {
	payload := make(map[string]any)
	for k, v := range c.cfg.Payload {
		payload[k] = v
	}
	payload["page"] = page
	payload["pageSize"] = c.cfg.PageSize
	payload["orderBy"] = string(ordering)
	if filter.PoolID != uuid.Nil {
		payload["poolId"] = filter.PoolID.String()
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/resources", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	var apiResp ApiResponse
	if err := c.do(req, &apiResp); err != nil {
		return nil, err
	}

	switch apiResp.Code {
	case CodeOK:
		return &apiResp, nil
	case CodeNotAllowed:
		return nil, ErrNotAllowed
	default:
		return nil, fmt.Errorf("API returned non-zero application code: %d", apiResp.Code)
	}
}

func (c *Client) setHeaders(req *http.Request) {
	for key, value := range c.cfg.Headers {
		req.Header.Set(key, value)
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrNotAllowed
	case http.StatusNotFound:
		return errNotFound
	default:
		return fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	return nil
}

func (c *Client) convertItems(items []ApiResource) []resource.Resource {
	resources := make([]resource.Resource, 0, len(items))
	for _, item := range items {
		r, err := ToResource(item, c.loc)
		if err != nil {
			c.logger.Warnf("Skipping resource %q (%s): %v", item.ID, item.Name, err)
			continue
		}
		resources = append(resources, r)
	}
	return resources
}

// ToResource converts an upstream record into a resource snapshot.
func ToResource(item ApiResource, loc *time.Location) (resource.Resource, error) {
	id, err := uuid.Parse(item.ID)
	if err != nil {
		return resource.Resource{}, fmt.Errorf("invalid resource id: %w", err)
	}

	mode, err := resource.ParseMode(item.Mode)
	if err != nil {
		return resource.Resource{}, err
	}

	lastModified, err := parse.ParseTimestamp(&item.LastModified, loc)
	if err != nil {
		return resource.Resource{}, fmt.Errorf("invalid lastModified: %w", err)
	}
	if lastModified == nil {
		return resource.Resource{}, errors.New("missing lastModified")
	}

	poolIDs := make([]uuid.UUID, 0, len(item.PoolIDs))
	for _, raw := range item.PoolIDs {
		poolID, err := uuid.Parse(raw)
		if err != nil {
			return resource.Resource{}, fmt.Errorf("invalid pool id %q: %w", raw, err)
		}
		poolIDs = append(poolIDs, poolID)
	}

	r := resource.Resource{
		ID:           id,
		Name:         item.Name,
		Mode:         mode,
		PoolIDs:      poolIDs,
		LastModified: *lastModified,
	}

	if w := item.AvailabilityWindow; w != nil {
		from, err := parse.ParseTimestamp(w.AvailableFrom, loc)
		if err != nil {
			return resource.Resource{}, fmt.Errorf("invalid availableFrom: %w", err)
		}
		until, err := parse.ParseTimestamp(w.AvailableUntil, loc)
		if err != nil {
			return resource.Resource{}, fmt.Errorf("invalid availableUntil: %w", err)
		}
		r.Window = resource.BasicWindow{
			AvailableFrom:  from,
			AvailableUntil: until,
			RollingWindow:  time.Duration(w.RollingWindowMinutes) * time.Minute,
		}
	}

	return r, nil
}
