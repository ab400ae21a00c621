package main

import (
	"fmt"
	"strconv"

	"github.com/lensesio/tableprinter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/deskops/internal/export"
	"github.com/dokzlo13/deskops/internal/helpdesk"
)

func (c *cli) deskCmd() *cobra.Command {
	var domain string
	cmd := &cobra.Command{
		Use:   "desk",
		Short: "Helpdesk listings and exports",
	}
	cmd.PersistentFlags().StringVarP(&domain, "domain", "d", "", "Helpdesk domain (default from config)")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export helpdesk data to files",
	}
	exportCmd.AddCommand(
		c.exportAssetsCmd(&domain),
		c.exportKBCmd(&domain),
		c.exportKBFilesCmd(&domain),
		c.exportCannedCmd(&domain),
		c.exportCatalogCmd(&domain),
	)

	cmd.AddCommand(
		exportCmd,
		c.workspacesCmd(&domain),
		c.slaCmd(&domain),
		c.formFieldsCmd(&domain),
		c.searchCmd(&domain),
	)
	return cmd
}

// helpdeskClient returns the client and effective domain.
func (c *cli) helpdeskClient(domain string) (*helpdesk.Client, string, error) {
	if domain == "" {
		domain = c.config().Helpdesk.Domain
	}
	domain, err := c.ask(domain, "Helpdesk domain", "helpdesk domain")
	if err != nil {
		return nil, "", err
	}
	client, err := c.services().Helpdesk(domain)
	if err != nil {
		return nil, "", err
	}
	return client, domain, nil
}

func (c *cli) exporter(domain string) (*export.Exporter, string, error) {
	client, domain, err := c.helpdeskClient(domain)
	if err != nil {
		return nil, "", err
	}
	return export.New(client, c.config().Export.Dir).WithClock(c.now), domain, nil
}

func (c *cli) exportAssetsCmd(domain *string) *cobra.Command {
	var resources []string
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Export the asset inventory to one JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, _, err := c.exporter(*domain)
			if err != nil {
				return err
			}
			path, err := exp.AssetInventory(ctxOf(cmd), resources)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Exported", path)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&resources, "resource", export.AssetResources, "Resources to export")
	return cmd
}

func (c *cli) exportKBCmd(domain *string) *cobra.Command {
	return &cobra.Command{
		Use:   "kb",
		Short: "Export every knowledge base article to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, d, err := c.exporter(*domain)
			if err != nil {
				return err
			}
			path, n, err := exp.KnowledgeBaseCSV(ctxOf(cmd), d)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Exported %d articles to %s\n", n, path)
			return nil
		},
	}
}

func (c *cli) exportKBFilesCmd(domain *string) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "kb-files",
		Short: "Write one directory per folder and one file pair per article of a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, _, err := c.exporter(*domain)
			if err != nil {
				return err
			}
			category, err = c.ask(category, "Knowledge base category id", "category id")
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(category, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q", category)
			}

			summary, err := exp.KnowledgeBaseFiles(ctxOf(cmd), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Folders: %d created, %d existing. Articles: %d written, %d skipped.\n",
				summary.FoldersCreated, summary.FoldersExisting, summary.ArticlesWritten, summary.ArticlesSkipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Category id")
	return cmd
}

func (c *cli) exportCannedCmd(domain *string) *cobra.Command {
	return &cobra.Command{
		Use:   "canned",
		Short: "Export canned responses to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, d, err := c.exporter(*domain)
			if err != nil {
				return err
			}
			path, n, err := exp.CannedResponsesCSV(ctxOf(cmd), d)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Exported %d canned responses to %s\n", n, path)
			return nil
		},
	}
}

func (c *cli) exportCatalogCmd(domain *string) *cobra.Command {
	var workspace int64
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Export service catalog items to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, d, err := c.exporter(*domain)
			if err != nil {
				return err
			}
			path, n, err := exp.ServiceItemsCSV(ctxOf(cmd), d, workspace)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Exported %d service items to %s\n", n, path)
			return nil
		},
	}
	cmd.Flags().Int64Var(&workspace, "workspace", helpdesk.NoWorkspace, "Workspace id (default all)")
	return cmd
}

type workspaceRow struct {
	ID      int64  `header:"ID"`
	Name    string `header:"Name"`
	State   string `header:"State"`
	Primary bool   `header:"Primary"`
}

func (c *cli) workspacesCmd(domain *string) *cobra.Command {
	return &cobra.Command{
		Use:   "workspaces",
		Short: "List workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := c.helpdeskClient(*domain)
			if err != nil {
				return err
			}
			workspaces, err := client.Workspaces(ctxOf(cmd))
			if err != nil {
				return err
			}
			rows := make([]workspaceRow, len(workspaces))
			for i, w := range workspaces {
				rows[i] = workspaceRow(w)
			}
			c.table(rows, len(rows))
			return nil
		},
	}
}

type slaRow struct {
	ID        int64  `header:"ID"`
	Name      string `header:"Name"`
	Active    bool   `header:"Active"`
	IsDefault bool   `header:"Default"`
}

func (c *cli) slaCmd(domain *string) *cobra.Command {
	var workspace int64
	cmd := &cobra.Command{
		Use:   "sla",
		Short: "List SLA policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := c.helpdeskClient(*domain)
			if err != nil {
				return err
			}
			policies, err := client.SLAPolicies(ctxOf(cmd), workspace)
			if err != nil {
				return err
			}
			rows := make([]slaRow, len(policies))
			for i, p := range policies {
				rows[i] = slaRow{ID: p.ID, Name: p.Name, Active: p.Active, IsDefault: p.IsDefault}
			}
			c.table(rows, len(rows))
			return nil
		},
	}
	cmd.Flags().Int64Var(&workspace, "workspace", helpdesk.NoWorkspace, "Workspace id (default all)")
	return cmd
}

type fieldRow struct {
	ID       int64  `header:"ID"`
	Label    string `header:"Label"`
	Name     string `header:"Name"`
	Type     string `header:"Type"`
	Required string `header:"Required"`
}

func (c *cli) formFieldsCmd(domain *string) *cobra.Command {
	var (
		workspace int64
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "form-fields",
		Short: "List ticket form fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := c.helpdeskClient(*domain)
			if err != nil {
				return err
			}
			fields, err := client.TicketFormFields(ctxOf(cmd), workspace)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(c.out, fields)
			}
			rows := make([]fieldRow, len(fields))
			for i, f := range fields {
				rows[i] = fieldRow{
					ID:       f.ID(),
					Label:    f.Text("label"),
					Name:     f.Text("name"),
					Type:     f.Text("field_type"),
					Required: f.Text("required"),
				}
			}
			c.table(rows, len(rows))
			return nil
		},
	}
	cmd.Flags().Int64Var(&workspace, "workspace", helpdesk.NoWorkspace, "Workspace id (default all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw field definitions")
	return cmd
}

type articleRow struct {
	ID       int64  `header:"ID"`
	Title    string `header:"Title"`
	FolderID string `header:"Folder"`
	Status   string `header:"Status"`
}

func (c *cli) searchCmd(domain *string) *cobra.Command {
	var (
		term    string
		page    int
		perPage int
	)
	cmd := &cobra.Command{
		Use:   "search [TERM]",
		Short: "Search knowledge base articles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				term = args[0]
			}
			client, _, err := c.helpdeskClient(*domain)
			if err != nil {
				return err
			}
			term, err = c.ask(term, "Search term", "search term")
			if err != nil {
				return err
			}
			articles, err := client.SearchArticles(ctxOf(cmd), term, page, perPage)
			if err != nil {
				return err
			}
			log.Debug().Str("term", term).Int("found", len(articles)).Msg("Article search finished")

			rows := make([]articleRow, len(articles))
			for i, a := range articles {
				rows[i] = articleRow{ID: a.ID(), Title: a.Text("title"), FolderID: a.Text("folder_id"), Status: a.Text("status")}
			}
			fmt.Fprintf(c.out, "Total articles found: %d\n", len(rows))
			c.table(rows, len(rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&term, "term", "", "Search term")
	cmd.Flags().IntVar(&page, "page", 1, "Result page")
	cmd.Flags().IntVar(&perPage, "per-page", 30, "Results per page")
	return cmd
}

// table prints rows, or a placeholder when there are none.
func (c *cli) table(rows any, n int) {
	if n == 0 {
		fmt.Fprintln(c.out, mutedStyle.Render("No results"))
		return
	}
	tableprinter.Print(c.out, rows)
}
