package helpdesk

import (
	"context"
	"fmt"
	"strconv"
)

// Category is a knowledge base category.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

// Folder is a knowledge base folder.
type Folder struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Position    int    `json:"position"`
	CategoryID  int64  `json:"category_id"`
}

// CannedResponseFolder groups canned responses.
type CannedResponseFolder struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Workspace is a helpdesk workspace.
type Workspace struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	State   string `json:"state"`
	Primary bool   `json:"primary"`
}

// SLAPolicy is a service level agreement policy.
type SLAPolicy struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
	IsDefault   bool   `json:"is_default"`
}

// Categories lists knowledge base categories
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	return listAll[Category](ctx, c, "solutions/categories", "categories", nil)
}

// Folders lists the folders of a category
func (c *Client) Folders(ctx context.Context, categoryID int64) ([]Folder, error) {
	return listAll[Folder](ctx, c, "solutions/folders", "folders", map[string]string{
		"category_id": strconv.FormatInt(categoryID, 10),
	})
}

// Articles lists the articles of a folder
func (c *Client) Articles(ctx context.Context, folderID int64) ([]Record, error) {
	return listAll[Record](ctx, c, "solutions/articles", "articles", map[string]string{
		"folder_id": strconv.FormatInt(folderID, 10),
	})
}

// CannedResponseFolders lists canned response folders
func (c *Client) CannedResponseFolders(ctx context.Context) ([]CannedResponseFolder, error) {
	return listAll[CannedResponseFolder](ctx, c, "canned_response_folders", "canned_response_folders", nil)
}

// CannedResponses lists the responses of a folder
func (c *Client) CannedResponses(ctx context.Context, folderID int64) ([]Record, error) {
	resource := fmt.Sprintf("canned_response_folders/%d/canned_responses", folderID)
	return getList[Record](ctx, c, resource, "canned_responses", nil)
}

// ServiceItems lists service catalog items
func (c *Client) ServiceItems(ctx context.Context, workspaceID int64) ([]Record, error) {
	return listAll[Record](ctx, c, "service_catalog/items", "service_items", workspaceQuery(workspaceID))
}

// Workspaces lists workspaces
func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	return getList[Workspace](ctx, c, "workspaces", "workspaces", nil)
}

// SLAPolicies lists SLA policies
func (c *Client) SLAPolicies(ctx context.Context, workspaceID int64) ([]SLAPolicy, error) {
	return getList[SLAPolicy](ctx, c, "sla_policies", "sla_policies", workspaceQuery(workspaceID))
}

// TicketFormFields lists the ticket form fields
func (c *Client) TicketFormFields(ctx context.Context, workspaceID int64) ([]Record, error) {
	return getList[Record](ctx, c, "ticket_form_fields", "ticket_fields", workspaceQuery(workspaceID))
}

// SearchArticles returns one page of knowledge base search results
func (c *Client) SearchArticles(ctx context.Context, term string, page, perPage int) ([]Record, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	return getList[Record](ctx, c, "solutions/articles/search", "articles", map[string]string{
		"search_term": term,
		"page":        strconv.Itoa(page),
		"per_page":    strconv.Itoa(perPage),
	})
}

// Records lists every object of a top level resource such as "assets"
// or "requesters". The list is expected under the resource's own name.
func (c *Client) Records(ctx context.Context, resource string) ([]Record, error) {
	return listAll[Record](ctx, c, resource, resource, nil)
}
