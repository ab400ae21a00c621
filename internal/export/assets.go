package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deskops/internal/helpdesk"
)

// AssetResources are the inventory resources exported by default.
var AssetResources = []string{"asset_types", "vendors", "locations", "products", "assets", "requesters"}

// AssetFileName is the inventory export file name for now.
func AssetFileName(now time.Time) string {
	return "Exported_FS_Data-" + now.Format("200601021504") + ".json"
}

// inventory is a JSON object whose keys keep insertion order.
type inventory struct {
	keys   []string
	values map[string][]helpdesk.Record
}

// MarshalJSON implements json.Marshaler
func (inv inventory) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range inv.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		records := inv.values[k]
		if records == nil {
			records = []helpdesk.Record{}
		}
		value, err := json.Marshal(records)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// WriteAssetInventory fetches every resource and writes one JSON object
// keyed by resource name, in the given order.
func (e *Exporter) WriteAssetInventory(ctx context.Context, w io.Writer, resources []string) error {
	inv := inventory{values: make(map[string][]helpdesk.Record, len(resources))}
	for _, res := range resources {
		records, err := e.src.Records(ctx, res)
		if err != nil {
			return fmt.Errorf("export %s: %w", res, err)
		}
		log.Info().Str("resource", res).Int("count", len(records)).Msg("Fetched inventory")
		if _, seen := inv.values[res]; !seen {
			inv.keys = append(inv.keys, res)
		}
		inv.values[res] = records
	}

	data, err := json.MarshalIndent(inv, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode inventory: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// AssetInventory writes the inventory file and returns its path.
func (e *Exporter) AssetInventory(ctx context.Context, resources []string) (string, error) {
	if len(resources) == 0 {
		resources = AssetResources
	}
	return e.writeFile(AssetFileName(e.now()), func(w io.Writer) error {
		return e.WriteAssetInventory(ctx, w, resources)
	})
}
