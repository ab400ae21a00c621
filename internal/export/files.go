package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

var articlePage = template.Must(template.New("article").Parse(`<html>
<head>
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// FilesSummary counts what KnowledgeBaseFiles did.
type FilesSummary struct {
	FoldersCreated  int
	FoldersExisting int
	ArticlesWritten int
	ArticlesSkipped int
}

// KnowledgeBaseFiles mirrors a category on disk: one directory per
// folder named "<position>. <name>" and, per article, <title>.json with
// the raw record and <title>.html with its body. Entries that already
// exist are left alone.
func (e *Exporter) KnowledgeBaseFiles(ctx context.Context, categoryID int64) (FilesSummary, error) {
	var sum FilesSummary

	folders, err := e.src.Folders(ctx, categoryID)
	if err != nil {
		return sum, fmt.Errorf("list folders of category %d: %w", categoryID, err)
	}

	for _, folder := range folders {
		dir := filepath.Join(e.dir, safeName(fmt.Sprintf("%d. %s", folder.Position, folder.Name)))
		switch _, err := os.Stat(dir); {
		case err == nil:
			sum.FoldersExisting++
			log.Info().Str("dir", dir).Msg("Directory exists, skipping")
		case errors.Is(err, fs.ErrNotExist):
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return sum, fmt.Errorf("failed to create %s: %w", dir, err)
			}
			sum.FoldersCreated++
		default:
			return sum, err
		}

		articles, err := e.src.Articles(ctx, folder.ID)
		if err != nil {
			return sum, fmt.Errorf("list articles of folder %d: %w", folder.ID, err)
		}

		for _, a := range articles {
			title := a.Text("title")
			base := filepath.Join(dir, safeName(title))
			if exists(base) || exists(base+".json") {
				sum.ArticlesSkipped++
				log.Info().Str("article", base).Msg("Article exists, skipping")
				continue
			}

			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "    ")
			if err := enc.Encode(a); err != nil {
				return sum, fmt.Errorf("encode article %q: %w", title, err)
			}
			if err := os.WriteFile(base+".json", buf.Bytes(), 0o644); err != nil {
				return sum, err
			}

			html, err := os.Create(base + ".html")
			if err != nil {
				return sum, err
			}
			// the article body is HTML authored in the helpdesk and is written as-is
			err = articlePage.Execute(html, struct {
				Title string
				Body  template.HTML
			}{Title: title, Body: template.HTML(a.Text("description"))})
			if cerr := html.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return sum, fmt.Errorf("write article %q: %w", title, err)
			}

			sum.ArticlesWritten++
			log.Debug().Str("article", base).Msg("Generated article files")
		}
	}

	return sum, nil
}

// safeName replaces path separators so a title stays one path element.
func safeName(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "/", "-"))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
