package met

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"collections/internal/cache"
)

const DefaultBaseURL = "https://collectionapi.metmuseum.org/public/collection/v1"

var ErrSearchFailed = errors.New("met search failed")

type Config struct {
	BaseURL            string
	SearchTimeout      time.Duration
	ObjectTimeout      time.Duration
	DepartmentsTimeout time.Duration
	Concurrency        int
	RatePerSecond      float64
	RateBurst          int
}

type Client struct {
	cfg     Config
	http    *http.Client
	cache   *cache.TTL[[]byte]
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(cfg Config, objects *cache.TTL[[]byte], logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.SearchTimeout == 0 {
		cfg.SearchTimeout = 15 * time.Second
	}
	if cfg.ObjectTimeout == 0 {
		cfg.ObjectTimeout = 10 * time.Second
	}
	if cfg.DepartmentsTimeout == 0 {
		cfg.DepartmentsTimeout = 8 * time.Second
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 8
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.RateBurst < 1 {
		cfg.RateBurst = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		cache:   objects,
		limiter: rate.NewLimiter(limit, cfg.RateBurst),
		logger:  logger.With("component", "met"),
	}
}

// SearchIDs returns the deduplicated object ids matching q. The search endpoint
// takes a single department, so each department gets its own request and the
// results are merged in first-seen order.
func (c *Client) SearchIDs(ctx context.Context, q string, departmentIDs []int) ([]int, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		q = "*"
	}
	if len(departmentIDs) == 0 {
		ids, err := c.search(ctx, q, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
		}
		return dedupe(ids), nil
	}

	results := make([][]int, len(departmentIDs))
	errs := make([]error, len(departmentIDs))
	g := new(errgroup.Group)
	g.SetLimit(c.cfg.Concurrency)
	for i, dept := range departmentIDs {
		g.Go(func() error {
			ids, err := c.search(ctx, q, dept)
			if err != nil {
				c.logger.Warn("department search failed", "q", q, "department_id", dept, "error", err)
				errs[i] = err
				return nil
			}
			results[i] = ids
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	merged := make([]int, 0)
	for i := range results {
		if errs[i] != nil {
			failed++
			continue
		}
		merged = append(merged, results[i]...)
	}
	if failed == len(departmentIDs) {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, errors.Join(errs...))
	}
	return dedupe(merged), nil
}

func (c *Client) search(ctx context.Context, q string, departmentID int) ([]int, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("hasImages", "true")
	if departmentID > 0 {
		params.Set("departmentId", strconv.Itoa(departmentID))
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SearchTimeout)
	defer cancel()

	body, err := c.get(ctx, "/search?"+params.Encode())
	if err != nil {
		return nil, err
	}
	var res searchResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}
	return res.ObjectIDs, nil
}

// Object returns one catalog object, served from the object cache when present.
func (c *Client) Object(ctx context.Context, id int) (Object, error) {
	key := objectCacheKey(id)
	if body, found := c.cache.Get(key); found {
		return decodeObject(body)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ObjectTimeout)
	defer cancel()
	body, err := c.get(ctx, "/objects/"+strconv.Itoa(id))
	if err != nil {
		return Object{}, err
	}
	obj, err := decodeObject(body)
	if err != nil {
		return Object{}, err
	}
	c.cache.Set(key, body)
	return obj, nil
}

// FetchObjects fetches ids with bounded concurrency. A failed fetch is counted
// and leaves its slot empty; it never stops the other fetches.
func (c *Client) FetchObjects(ctx context.Context, ids []int) FetchResult {
	slots := make([]*Object, len(ids))
	var (
		mu     sync.Mutex
		failed int
	)
	g := new(errgroup.Group)
	g.SetLimit(c.cfg.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			obj, err := c.Object(ctx, id)
			if err != nil {
				c.logger.Warn("object fetch failed", "object_id", id, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			slots[i] = &obj
			return nil
		})
	}
	_ = g.Wait()

	out := FetchResult{Objects: make([]Object, 0, len(ids)), Failed: failed}
	for _, obj := range slots {
		if obj != nil {
			out.Objects = append(out.Objects, *obj)
		}
	}
	return out
}

func (c *Client) Departments(ctx context.Context) ([]Department, error) {
	const key = "met-departments"
	body, found := c.cache.Get(key)
	if !found {
		ctx, cancel := context.WithTimeout(ctx, c.cfg.DepartmentsTimeout)
		defer cancel()

		var err error
		body, err = c.get(ctx, "/departments")
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, body)
	}
	var res departmentsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode departments: %w", err)
	}
	if res.Departments == nil {
		res.Departments = []Department{}
	}
	return res.Departments, nil
}

func (c *Client) get(ctx context.Context, pathAndQuery string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+pathAndQuery, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("met %s: bad status %d", pathAndQuery, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}

func decodeObject(body []byte) (Object, error) {
	var obj Object
	if err := json.Unmarshal(body, &obj); err != nil {
		return Object{}, fmt.Errorf("decode object: %w", err)
	}
	obj.Raw = json.RawMessage(body)
	return obj, nil
}

func objectCacheKey(id int) string {
	return "met-object-" + strconv.Itoa(id)
}

func dedupe(ids []int) []int {
	out := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
