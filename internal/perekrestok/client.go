package perekrestok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"foodcatalog_api/internal/catalog/source"
	"foodcatalog_api/pkg/httpx"
	"foodcatalog_api/pkg/logger"
)

const (
	// userAgent mimics the mobile app; the product API rejects plain clients.
	userAgent = "Perekrestok/2.6.0 (com.x5retailgroup.perekrestok-new; build:570; iOS 12.1.4) Alamofire/4.8.1"

	requestTimeout = 100 * time.Second
)

// Item ids are scraped out of the rendered catalog tiles.
var productIDRegexp = regexp.MustCompile(`xf-catalog__item\s*"\s*data-id="(\d+)"`)

var errUnauthorized = errors.New("unauthorized")

// tokenFunc acquires an access token. The default implementation hands back
// the statically configured token; tests substitute their own.
type tokenFunc func(ctx context.Context) (string, error)

// client talks to the two Perekrestok endpoints: the site's ajax catalog
// listing and the mobile product API. All traffic goes through the shared
// network gate.
type client struct {
	siteURL    string
	apiURL     string
	regionID   int
	httpClient *http.Client
	gate       *source.Gate
	log        logger.Logger

	reacquire    bool
	acquireToken tokenFunc

	tokenMu sync.Mutex
	token   string
}

type listingPage struct {
	count int
	ids   []int64
}

// categoryPage fetches one listing page of a category and scrapes the item
// ids out of it.
func (c *client) categoryPage(ctx context.Context, slug string, page int) (listingPage, error) {
	url := fmt.Sprintf("%s/catalog/%s?page=%d&sort=rate_desc&ajax=true", c.siteURL, slug, page)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return listingPage{}, err
	}

	resp, err := c.gate.Do(ctx, c.httpClient, req)
	if err != nil {
		return listingPage{}, err
	}
	body, err := httpx.ReadBody(resp)
	if err != nil {
		return listingPage{}, fmt.Errorf("reading %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return listingPage{}, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}

	var listing listingResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return listingPage{}, fmt.Errorf("decoding %s: %w", url, err)
	}

	var ids []int64
	for _, match := range productIDRegexp.FindAllStringSubmatch(listing.HTML, -1) {
		id, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	return listingPage{count: listing.Count, ids: ids}, nil
}

// product fetches one item from the product API. An unauthorized response
// optionally drops the cached token, re-acquires it and retries once.
func (c *client) product(ctx context.Context, externalID int64) (productData, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return productData{}, err
	}

	data, err := c.fetchProduct(ctx, externalID, token)
	if errors.Is(err, errUnauthorized) && c.reacquire {
		c.log.Log("access token rejected, reacquiring")
		c.invalidateToken(token)
		if token, err = c.ensureToken(ctx); err != nil {
			return productData{}, err
		}
		data, err = c.fetchProduct(ctx, externalID, token)
	}
	return data, err
}

func (c *client) fetchProduct(ctx context.Context, externalID int64, token string) (productData, error) {
	url := fmt.Sprintf("%s/v5/store_products/product?productId=%d&regionId=%d",
		c.apiURL, externalID, c.regionID)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return productData{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Authorization", "Bearer "+token)

	resp, err := c.gate.Do(ctx, c.httpClient, req)
	if err != nil {
		return productData{}, err
	}
	body, err := httpx.ReadBody(resp)
	if err != nil {
		return productData{}, fmt.Errorf("reading %s: %w", url, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return productData{}, fmt.Errorf("fetching %s: %w", url, errUnauthorized)
	case resp.StatusCode != http.StatusOK:
		return productData{}, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}

	var product productResponse
	if err := json.Unmarshal(body, &product); err != nil {
		return productData{}, fmt.Errorf("decoding %s: %w", url, err)
	}
	return product.Data, nil
}

// ensureToken lazily acquires the access token at most once per client
// lifetime. The mutex guards the check-and-set; concurrent fetchers block
// here only until the first acquisition lands.
func (c *client) ensureToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" {
		return c.token, nil
	}
	token, err := c.acquireToken(ctx)
	if err != nil {
		return "", fmt.Errorf("acquiring access token: %w", err)
	}
	c.token = token
	return token, nil
}

// invalidateToken clears the cached token, but only if it is still the one
// the caller failed with; a concurrent re-acquisition is left alone.
func (c *client) invalidateToken(stale string) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token == stale {
		c.token = ""
	}
}
