package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/saltmarsh-systems/driftwatch/internal/config"
	"github.com/saltmarsh-systems/driftwatch/internal/drift"
)

// HTMLSource pages through an HTML list endpoint. Extract fetches the
// current page and pulls one item per element matching ItemSelector;
// Advance moves to the next page by incrementing the page query
// parameter. Without a page parameter the surface is a single static
// page and repeated passes stall out naturally.
type HTMLSource struct {
	client    *resty.Client
	url       string
	pageParam string
	page      int

	itemSelector   string
	idSelector     string
	idAttr         string
	fieldSelectors map[string]string
}

// NewHTML creates an HTML surface adapter from its configuration.
func NewHTML(surface config.Surface) (*HTMLSource, error) {
	if surface.URL == "" {
		return nil, fmt.Errorf("html surface requires url")
	}
	if surface.ItemSelector == "" {
		return nil, fmt.Errorf("html surface requires item_selector")
	}

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("user-agent", userAgent)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	client.SetCookieJar(jar)

	// 2 requests max per second; burst >= 2 means no request is dropped,
	// only delayed.
	limiter := rate.NewLimiter(2, 2)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	startPage := surface.StartPage
	if startPage == 0 {
		startPage = 1
	}

	return &HTMLSource{
		client:         client,
		url:            surface.URL,
		pageParam:      surface.PageParam,
		page:           startPage,
		itemSelector:   surface.ItemSelector,
		idSelector:     surface.IDSelector,
		idAttr:         surface.IDAttr,
		fieldSelectors: surface.FieldSelectors,
	}, nil
}

// Extract fetches the current page and returns the items visible on it.
func (s *HTMLSource) Extract(ctx context.Context) ([]drift.Item, error) {
	req := s.client.R().SetContext(ctx)
	if s.pageParam != "" {
		req.SetQueryParam(s.pageParam, strconv.Itoa(s.page))
	}

	resp, err := req.Get(s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode(), s.url)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html from %s: %w", s.url, err)
	}

	var items []drift.Item
	doc.Find(s.itemSelector).Each(func(_ int, el *goquery.Selection) {
		id := s.extractID(el)
		if id == "" {
			return // element without a stable identifier, skip
		}

		var fields map[string]any
		if len(s.fieldSelectors) > 0 {
			fields = make(map[string]any, len(s.fieldSelectors))
			for name, selector := range s.fieldSelectors {
				fields[name] = strings.TrimSpace(el.Find(selector).First().Text())
			}
		}

		items = append(items, drift.Item{ID: id, Fields: fields})
	})

	return items, nil
}

// Advance moves to the next page.
func (s *HTMLSource) Advance(ctx context.Context) error {
	s.page++
	return nil
}

// extractID resolves the item's identifier: the IDSelector narrows to a
// child element (defaulting to the item element itself), then IDAttr
// picks an attribute value, otherwise the trimmed text is used.
func (s *HTMLSource) extractID(el *goquery.Selection) string {
	target := el
	if s.idSelector != "" {
		target = el.Find(s.idSelector).First()
	}
	if s.idAttr != "" {
		val, _ := target.Attr(s.idAttr)
		return strings.TrimSpace(val)
	}
	return strings.TrimSpace(target.Text())
}
