// Package statuspage is the client for the status-page vendor API.
package statuspage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deskops/internal/rest"
	"github.com/dokzlo13/deskops/internal/snapshot"
)

// Resource paths relative to the API root
const (
	ResourceGroups      = "groups/"
	ResourceServices    = "services/"
	ResourceMaintenance = "maintenance/"
)

// ErrMissingID is returned when a create succeeds without a record id.
var ErrMissingID = errors.New("create returned no id")

// Client provides typed access to groups, services and maintenance.
type Client struct {
	rest     *rest.Client
	pageSize int
}

// NewClient wraps a transport. pageSize <= 0 uses 100.
func NewClient(transport *rest.Client, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{rest: transport, pageSize: pageSize}
}

// Request exposes the raw transport for ad-hoc calls.
func (c *Client) Request(ctx context.Context, method, resource string, payload any) (*rest.Response, error) {
	return c.rest.Request(ctx, method, resource, payload)
}

// DryRun reports whether mutating calls are suppressed.
func (c *Client) DryRun() bool {
	return c.rest.DryRun()
}

// envelope is the paginated list shape of the status-page API.
type envelope[T any] struct {
	Count   int             `json:"count"`
	Next    json.RawMessage `json:"next"`
	Results []T             `json:"results"`
}

// listAll walks resource with limit/offset until a short page.
func listAll[T any](ctx context.Context, c *Client, resource string) ([]T, error) {
	var all []T
	for offset := 0; ; offset += c.pageSize {
		query := map[string]string{
			"limit":  strconv.Itoa(c.pageSize),
			"offset": strconv.Itoa(offset),
		}
		resp, err := c.rest.RequestWithQuery(ctx, http.MethodGet, resource, query, nil)
		if err != nil {
			return nil, err
		}
		if err := resp.Err(http.MethodGet, resource); err != nil {
			return nil, err
		}

		var page envelope[T]
		if err := resp.JSON(&page); err != nil {
			return nil, fmt.Errorf("%s: %w", resource, err)
		}
		all = append(all, page.Results...)

		log.Debug().
			Str("resource", resource).
			Int("offset", offset).
			Int("page", len(page.Results)).
			Int("total", len(all)).
			Msg("Fetched page")

		if len(page.Results) < c.pageSize || string(page.Next) == "null" {
			break
		}
	}
	return all, nil
}

// ListGroups returns every group of the account
func (c *Client) ListGroups(ctx context.Context) ([]snapshot.Group, error) {
	return listAll[snapshot.Group](ctx, c, ResourceGroups)
}

// ListServices returns every service of the account
func (c *Client) ListServices(ctx context.Context) ([]snapshot.Service, error) {
	return listAll[snapshot.Service](ctx, c, ResourceServices)
}

// GroupRequest is the create-group payload
type GroupRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

// ServiceRequest is the create-service payload
type ServiceRequest struct {
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Order          int              `json:"order"`
	Group          *int64           `json:"group"`
	DisplayOptions snapshot.RawJSON `json:"display_options,omitempty"`
}

// CreateGroup creates a group and returns the server's record
func (c *Client) CreateGroup(ctx context.Context, req GroupRequest) (*snapshot.Group, error) {
	var group snapshot.Group
	if err := c.create(ctx, ResourceGroups, req, &group); err != nil {
		return nil, err
	}
	if group.ID == 0 {
		return nil, fmt.Errorf("%w: group %q", ErrMissingID, req.Name)
	}
	return &group, nil
}

// CreateService creates a service and returns the server's record
func (c *Client) CreateService(ctx context.Context, req ServiceRequest) (*snapshot.Service, error) {
	var service snapshot.Service
	if err := c.create(ctx, ResourceServices, req, &service); err != nil {
		return nil, err
	}
	if service.ID == 0 {
		return nil, fmt.Errorf("%w: service %q", ErrMissingID, req.Name)
	}
	return &service, nil
}

// CreateMaintenance schedules a maintenance window
func (c *Client) CreateMaintenance(ctx context.Context, payload map[string]any) (map[string]any, error) {
	var out map[string]any
	if err := c.create(ctx, ResourceMaintenance, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) create(ctx context.Context, resource string, payload, out any) error {
	resp, err := c.rest.Request(ctx, http.MethodPost, resource, payload)
	if err != nil {
		return err
	}
	if err := resp.Err(http.MethodPost, resource); err != nil {
		return err
	}
	if len(resp.Body) == 0 {
		return nil
	}
	return resp.JSON(out)
}
