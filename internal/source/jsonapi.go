package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/saltmarsh-systems/driftwatch/internal/config"
	"github.com/saltmarsh-systems/driftwatch/internal/drift"
)

// JSONSource pages through a JSON endpoint returning an array of objects
// (optionally nested under ItemsKey). The object field named by IDField
// becomes the item ID; Fields selects which other keys to carry, all of
// them when empty.
type JSONSource struct {
	client    *resty.Client
	url       string
	pageParam string
	page      int

	itemsKey string
	idField  string
	fields   []string
}

// NewJSON creates a JSON surface adapter from its configuration.
func NewJSON(surface config.Surface) (*JSONSource, error) {
	if surface.URL == "" {
		return nil, fmt.Errorf("json surface requires url")
	}
	if surface.IDField == "" {
		return nil, fmt.Errorf("json surface requires id_field")
	}

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("user-agent", userAgent)
	client.SetHeader("accept", "application/json")

	limiter := rate.NewLimiter(2, 2)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	startPage := surface.StartPage
	if startPage == 0 {
		startPage = 1
	}

	return &JSONSource{
		client:    client,
		url:       surface.URL,
		pageParam: surface.PageParam,
		page:      startPage,
		itemsKey:  surface.ItemsKey,
		idField:   surface.IDField,
		fields:    surface.Fields,
	}, nil
}

// Extract fetches the current page and decodes its items.
func (s *JSONSource) Extract(ctx context.Context) ([]drift.Item, error) {
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

	rows, err := decodeRows(resp.Body(), s.itemsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", s.url, err)
	}

	return rowsToItems(rows, s.idField, s.fields), nil
}

// Advance moves to the next page.
func (s *JSONSource) Advance(ctx context.Context) error {
	s.page++
	return nil
}

// decodeRows parses a JSON array of objects, optionally nested under key.
func decodeRows(body []byte, key string) ([]map[string]any, error) {
	var rows []map[string]any

	if key == "" {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	raw, ok := envelope[key]
	if !ok {
		return nil, fmt.Errorf("response has no %q key", key)
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// rowsToItems converts decoded objects to items. Rows without the ID
// field (or with an empty one) are skipped.
func rowsToItems(rows []map[string]any, idField string, fields []string) []drift.Item {
	var items []drift.Item
	for _, row := range rows {
		id := stringifyID(row[idField])
		if id == "" {
			continue
		}

		var itemFields map[string]any
		if len(fields) > 0 {
			itemFields = make(map[string]any, len(fields))
			for _, name := range fields {
				if v, ok := row[name]; ok {
					itemFields[name] = v
				}
			}
		} else {
			itemFields = make(map[string]any, len(row)-1)
			for name, v := range row {
				if name == idField {
					continue
				}
				itemFields[name] = v
			}
		}

		items = append(items, drift.Item{ID: id, Fields: itemFields})
	}
	return items
}

// stringifyID renders an ID value of any scalar JSON type as a string.
func stringifyID(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		// JSON numbers decode as float64; integral IDs must not grow a
		// decimal point.
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
