// Package maintenance schedules status-page maintenance windows from a
// JSON template shared by several accounts.
package maintenance

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNoAccounts is returned when every account would be removed.
	ErrNoAccounts = errors.New("at least one account must remain")
	// ErrUnknownAccount is returned for an account the template does not configure.
	ErrUnknownAccount = errors.New("no template for account")
)

// ReleasePlaceholder is substituted in the title and description.
const ReleasePlaceholder = "{rel_ver}"

// Template is the maintenance template file.
type Template struct {
	TemplateName        string                    `json:"template_name" validate:"required"`
	Type                string                    `json:"type"`
	Title               string                    `json:"title" validate:"required"`
	Description         string                    `json:"description"`
	IsAutoStart         bool                      `json:"is_auto_start"`
	IsAutoEnd           bool                      `json:"is_auto_end"`
	IsPrivate           bool                      `json:"is_private"`
	NotificationOptions map[string]any            `json:"notification_options"`
	MaintenanceUpdates  []any                     `json:"maintenance_updates"`
	Account             map[string]map[string]any `json:"account" validate:"required,min=1"`
}

// LoadTemplate reads and validates a template file.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	var tpl Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	if err := tpl.Validate(); err != nil {
		return nil, fmt.Errorf("invalid template %s: %w", path, err)
	}
	return &tpl, nil
}

// Validate checks the required fields.
func (t *Template) Validate() error {
	if err := validator.New().Struct(t); err != nil {
		return err
	}
	for key, fields := range t.Account {
		if _, ok := fields["affected_components"]; !ok {
			return fmt.Errorf("account %q: affected_components is required", key)
		}
	}
	return nil
}

// Accounts returns the configured account keys, sorted.
func (t *Template) Accounts() []string {
	keys := make([]string, 0, len(t.Account))
	for k := range t.Account {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AccountName returns the display name of an account, or its key.
func (t *Template) AccountName(key string) string {
	if name, ok := t.Account[key]["name"].(string); ok && name != "" {
		return name
	}
	return key
}

// ParseIndices reads a comma separated list of 1-based numbers.
// Anything that is not a positive number is ignored.
func ParseIndices(input string) []int {
	var out []int
	for _, part := range strings.Split(input, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			continue
		}
		out = append(out, n)
	}
	return out
}

// RemoveAccounts drops the accounts at the given 1-based indices and
// returns the kept and removed keys. Out of range indices are ignored.
func RemoveAccounts(keys []string, indices []int) (kept, removed []string, err error) {
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i >= 1 && i <= len(keys) {
			drop[i-1] = true
		}
	}
	if len(drop) >= len(keys) {
		return nil, nil, ErrNoAccounts
	}

	for i, k := range keys {
		if drop[i] {
			removed = append(removed, k)
		} else {
			kept = append(kept, k)
		}
	}
	return kept, removed, nil
}
