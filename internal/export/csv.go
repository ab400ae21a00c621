package export

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deskops/internal/helpdesk"
)

var articleColumns = []column{
	{header: "Article ID", key: "id"},
	{header: "Title", key: "title"},
	{header: "Description Text", key: "description_text", def: ""},
	{header: "Created At", key: "created_at"},
	{header: "Updated At", key: "updated_at"},
	{header: "Status", key: "status"},
	{header: "Approval Status", key: "approval_status", def: ""},
	{header: "Thumbs Up", key: "thumbs_up", def: 0.0},
	{header: "Thumbs Down", key: "thumbs_down", def: 0.0},
	{header: "Modified By", key: "modified_by", def: ""},
	{header: "Modified At", key: "modified_at", def: ""},
	{header: "Inserted Into Tickets", key: "inserted_into_tickets", def: 0.0},
	{header: "Article Type", key: "article_type", def: ""},
	{header: "Agent ID", key: "agent_id", def: ""},
	{header: "Views", key: "views", def: 0.0},
	{header: "Keywords", key: "keywords", def: ""},
	{header: "Review Date", key: "review_date", def: ""},
	{header: "URL", key: "url", def: ""},
	{header: "Attachments", key: "attachments", def: ""},
}

// KnowledgeBaseHeader is the header of the knowledge base CSV.
var KnowledgeBaseHeader = append([]string{"Category ID", "Category Name", "Folder ID", "Folder Name"}, headers(articleColumns)...)

// WriteKnowledgeBaseCSV walks categories, folders and articles and writes
// one row per article. It returns the number of rows.
func (e *Exporter) WriteKnowledgeBaseCSV(ctx context.Context, w io.Writer) (int, error) {
	categories, err := e.src.Categories(ctx)
	if err != nil {
		return 0, fmt.Errorf("list categories: %w", err)
	}

	var rows [][]string
	for _, cat := range categories {
		folders, err := e.src.Folders(ctx, cat.ID)
		if err != nil {
			return 0, fmt.Errorf("list folders of category %d: %w", cat.ID, err)
		}
		for _, folder := range folders {
			articles, err := e.src.Articles(ctx, folder.ID)
			if err != nil {
				return 0, fmt.Errorf("list articles of folder %d: %w", folder.ID, err)
			}
			for _, a := range articles {
				row := []string{
					strconv.FormatInt(cat.ID, 10), cat.Name,
					strconv.FormatInt(folder.ID, 10), folder.Name,
				}
				for _, col := range articleColumns {
					row = append(row, col.value(a))
				}
				rows = append(rows, row)
			}
		}
		log.Debug().Str("category", cat.Name).Int("folders", len(folders)).Msg("Exported category")
	}

	return len(rows), csvTable(w, KnowledgeBaseHeader, rows)
}

// KnowledgeBaseCSV writes the knowledge base export for domain.
func (e *Exporter) KnowledgeBaseCSV(ctx context.Context, domain string) (string, int, error) {
	var n int
	name := fmt.Sprintf("Freshservice_KB_Export_%s_%s.csv", domain, e.now().Format(csvTimestamp))
	path, err := e.writeFile(name, func(w io.Writer) error {
		var err error
		n, err = e.WriteKnowledgeBaseCSV(ctx, w)
		return err
	})
	return path, n, err
}

// csvTimestamp is the file name timestamp of the CSV exports.
const csvTimestamp = "20060102_150405"

var cannedColumns = []column{
	{header: "Response ID", key: "id"},
	{header: "Response Title", key: "title"},
	{header: "Response Content", key: "content"},
	{header: "Response Created At", key: "created_at"},
	{header: "Response Updated At", key: "updated_at"},
}

// CannedResponsesHeader is the header of the canned responses CSV.
var CannedResponsesHeader = append([]string{"Folder ID", "Folder Name", "Folder Description", "Folder Created At", "Folder Updated At"}, headers(cannedColumns)...)

// WriteCannedResponsesCSV writes one row per canned response, repeating
// the folder columns.
func (e *Exporter) WriteCannedResponsesCSV(ctx context.Context, w io.Writer) (int, error) {
	folders, err := e.src.CannedResponseFolders(ctx)
	if err != nil {
		return 0, fmt.Errorf("list canned response folders: %w", err)
	}

	var rows [][]string
	for _, f := range folders {
		responses, err := e.src.CannedResponses(ctx, f.ID)
		if err != nil {
			return 0, fmt.Errorf("list canned responses of folder %d: %w", f.ID, err)
		}
		for _, r := range responses {
			row := []string{strconv.FormatInt(f.ID, 10), f.Name, f.Description, f.CreatedAt, f.UpdatedAt}
			for _, col := range cannedColumns {
				row = append(row, col.value(r))
			}
			rows = append(rows, row)
		}
	}

	return len(rows), csvTable(w, CannedResponsesHeader, rows)
}

// CannedResponsesCSV writes the canned responses export for domain.
func (e *Exporter) CannedResponsesCSV(ctx context.Context, domain string) (string, int, error) {
	var n int
	name := fmt.Sprintf("Freshservice_Canned_Response_Folders_Export_%s_%s.csv", domain, e.now().Format(csvTimestamp))
	path, err := e.writeFile(name, func(w io.Writer) error {
		var err error
		n, err = e.WriteCannedResponsesCSV(ctx, w)
		return err
	})
	return path, n, err
}

var serviceItemColumns = []column{
	{header: "ID", key: "id"},
	{header: "Workspace ID", key: "workspace_id", def: ""},
	{header: "Created At", key: "created_at"},
	{header: "Updated At", key: "updated_at"},
	{header: "Name", key: "name"},
	{header: "Delivery Time", key: "delivery_time", def: 0.0},
	{header: "Display ID", key: "display_id", def: ""},
	{header: "Category ID", key: "category_id", def: ""},
	{header: "Product ID", key: "product_id", def: ""},
	{header: "Quantity", key: "quantity", def: 0.0},
	{header: "Deleted", key: "deleted", def: false},
	{header: "Group Visibility", key: "group_visibility", def: 0.0},
	{header: "Item Type", key: "item_type", def: 0.0},
	{header: "CI Type ID", key: "ci_type_id", def: ""},
	{header: "Cost Visibility", key: "cost_visibility", def: false},
	{header: "Delivery Time Visibility", key: "delivery_time_visibility", def: false},
	{header: "Configs", key: "configs", def: ""},
	{header: "Botified", key: "botified", def: false},
	{header: "Visibility", key: "visibility", def: 0.0},
	{header: "Allow Attachments", key: "allow_attachments", def: false},
	{header: "Allow Quantity", key: "allow_quantity", def: false},
	{header: "Is Bundle", key: "is_bundle", def: false},
	{header: "Create Child", key: "create_child", def: false},
	{header: "Description", key: "description", def: ""},
	{header: "Short Description", key: "short_description", def: ""},
	{header: "Cost", key: "cost", def: 0.0},
	{header: "Custom Fields", key: "custom_fields", def: ""},
	{header: "Child Items", key: "child_items", def: ""},
}

// ServiceItemsHeader is the header of the service catalog CSV.
var ServiceItemsHeader = headers(serviceItemColumns)

// WriteServiceItemsCSV writes one row per service catalog item.
func (e *Exporter) WriteServiceItemsCSV(ctx context.Context, w io.Writer, workspaceID int64) (int, error) {
	items, err := e.src.ServiceItems(ctx, workspaceID)
	if err != nil {
		return 0, fmt.Errorf("list service items: %w", err)
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := make([]string, 0, len(serviceItemColumns))
		for _, col := range serviceItemColumns {
			row = append(row, col.value(item))
		}
		rows = append(rows, row)
	}

	return len(rows), csvTable(w, ServiceItemsHeader, rows)
}

// ServiceItemsCSV writes the service catalog export for domain.
func (e *Exporter) ServiceItemsCSV(ctx context.Context, domain string, workspaceID int64) (string, int, error) {
	var n int
	name := fmt.Sprintf("Freshservice_Service_Items_Export_%s_%s.csv", domain, e.now().Format(csvTimestamp))
	path, err := e.writeFile(name, func(w io.Writer) error {
		var err error
		n, err = e.WriteServiceItemsCSV(ctx, w, workspaceID)
		return err
	})
	return path, n, err
}

// compile-time check that the helpdesk client satisfies Source
var _ Source = (*helpdesk.Client)(nil)
