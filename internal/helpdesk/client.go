// Package helpdesk is the client for the helpdesk (ticketing and
// knowledge base) vendor API.
package helpdesk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deskops/internal/credentials"
	"github.com/dokzlo13/deskops/internal/rest"
)

// APIKeyPassword is the basic-auth password sent with an API key.
const APIKeyPassword = "X"

// NoWorkspace omits the workspace_id filter.
const NoWorkspace int64 = -1

// Client provides paginated read access to the helpdesk API.
type Client struct {
	rest     *rest.Client
	pageSize int
}

// NewClient creates a client authenticating with (api key, "X").
// pageSize <= 0 uses 100.
func NewClient(cfg rest.Config, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = 100
	}
	cfg.Credential.Account = APIKeyPassword
	cfg.Credential.Scheme = credentials.SchemeBasic
	return &Client{rest: rest.NewClient(cfg), pageSize: pageSize}
}

// Record is a raw helpdesk object.
type Record map[string]any

// ID returns the numeric id of the record, 0 when missing.
func (r Record) ID() int64 {
	switch v := r["id"].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

// Text returns the field as text, "" when missing or null.
func (r Record) Text(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return FormatValue(v)
}

// FormatValue renders a decoded JSON value for CSV output. Whole numbers
// print without a fraction, objects and arrays as compact JSON.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

// apiError describes the errors payload the helpdesk returns with some
// 2xx and all 4xx answers.
func apiError(resource string, body map[string]json.RawMessage) error {
	raw := body["errors"]
	d, ok := body["description"]
	if !ok {
		return fmt.Errorf("%s: API returned errors: %s", resource, raw)
	}
	var desc string
	if err := json.Unmarshal(d, &desc); err != nil {
		return fmt.Errorf("%s: API returned errors: %s (description %s: %v)", resource, raw, d, err)
	}
	return fmt.Errorf("%s: API returned errors: %s %s", resource, desc, raw)
}

// get performs one GET and decodes the body into a map of raw fields.
func (c *Client) get(ctx context.Context, resource string, query map[string]string) (map[string]json.RawMessage, error) {
	resp, err := c.rest.RequestWithQuery(ctx, http.MethodGet, resource, query, nil)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(http.MethodGet, resource); err != nil {
		return nil, err
	}

	var body map[string]json.RawMessage
	if err := resp.JSON(&body); err != nil {
		return nil, fmt.Errorf("%s: %w", resource, err)
	}
	if raw, ok := body["errors"]; ok && string(raw) != "null" {
		return nil, apiError(resource, body)
	}
	return body, nil
}

// ListAll walks resource with per_page/page until a short page and
// returns the raw items found under key.
func (c *Client) ListAll(ctx context.Context, resource, key string, query map[string]string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for page := 1; ; page++ {
		q := map[string]string{
			"per_page": strconv.Itoa(c.pageSize),
			"page":     strconv.Itoa(page),
		}
		for k, v := range query {
			q[k] = v
		}

		body, err := c.get(ctx, resource, q)
		if err != nil {
			return nil, err
		}

		items, err := decodeItems(body, resource, key)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		if len(items) == c.pageSize {
			log.Debug().Str("resource", resource).Int("page", page).Int("total", len(all)).Msg("Full page, fetching next")
			continue
		}
		break
	}

	log.Debug().Str("resource", resource).Int("total", len(all)).Msg("Fetched records")
	return all, nil
}

func decodeItems(body map[string]json.RawMessage, resource, key string) ([]json.RawMessage, error) {
	raw, ok := body[key]
	if !ok {
		return nil, fmt.Errorf("%s: response has no %q list", resource, key)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%s: %q is not a list: %w", resource, key, err)
	}
	return items, nil
}

// listAll is ListAll decoding each item into T.
func listAll[T any](ctx context.Context, c *Client, resource, key string, query map[string]string) ([]T, error) {
	raw, err := c.ListAll(ctx, resource, key, query)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](raw, resource)
}

// getList fetches a single unpaginated list.
func getList[T any](ctx context.Context, c *Client, resource, key string, query map[string]string) ([]T, error) {
	body, err := c.get(ctx, resource, query)
	if err != nil {
		return nil, err
	}
	raw, err := decodeItems(body, resource, key)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](raw, resource)
}

func decodeAll[T any](raw []json.RawMessage, resource string) ([]T, error) {
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, fmt.Errorf("%s: failed to decode item: %w", resource, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func workspaceQuery(workspaceID int64) map[string]string {
	if workspaceID == NoWorkspace {
		return nil
	}
	return map[string]string{"workspace_id": strconv.FormatInt(workspaceID, 10)}
}
