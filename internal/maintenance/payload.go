package maintenance

import (
	"fmt"
	"maps"
	"strings"
)

// TestTitlePrefix marks maintenance created in debug mode.
const TestTitlePrefix = "[TEST]: "

// debugNotifications silences every notification channel.
var debugNotifications = map[string]any{
	"send_notification":     "false",
	"send_tweet":            "false",
	"email_on_start":        "false",
	"email_on_complete":     "false",
	"email_before_day_hour": "false",
	"email_before_one_hour": "false",
}

// BuildPayload renders the create-maintenance body for one account.
// In debug mode the maintenance is private, titled with TestTitlePrefix
// and sends no notifications. Per-account fields are applied last.
func BuildPayload(tpl *Template, account, release string, w Window, debug bool) (map[string]any, error) {
	fields, ok := tpl.Account[account]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAccount, account)
	}

	title := strings.ReplaceAll(tpl.Title, ReleasePlaceholder, release)
	notifications := tpl.NotificationOptions
	isPrivate := tpl.IsPrivate
	if debug {
		title = TestTitlePrefix + title
		notifications = debugNotifications
		isPrivate = true
	}

	payload := map[string]any{
		"title":                title,
		"description":          strings.ReplaceAll(tpl.Description, ReleasePlaceholder, release),
		"start_time":           w.StartISO(),
		"end_time":             w.EndISO(),
		"is_auto_start":        tpl.IsAutoStart,
		"is_auto_end":          tpl.IsAutoEnd,
		"is_private":           isPrivate,
		"affected_components":  fields["affected_components"],
		"notification_options": maps.Clone(notifications),
		"maintenance_updates":  tpl.MaintenanceUpdates,
	}
	maps.Copy(payload, fields)

	return payload, nil
}

// Summary is the confirmation text shown before scheduling.
func Summary(tpl *Template, accounts []string, release string, w Window, dryRun, debug bool) string {
	var modes []string
	if dryRun {
		modes = append(modes, "DRY RUN MODE ACTIVE")
	}
	if debug {
		modes = append(modes, "DEBUG MODE ACTIVE")
	}

	names := make([]string, len(accounts))
	for i, a := range accounts {
		names[i] = tpl.AccountName(a)
	}

	var b strings.Builder
	if len(modes) > 0 {
		fmt.Fprintf(&b, "******* %s! *******\n\n", strings.Join(modes, " AND "))
	}
	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "Release Version: %s\n", release)
	fmt.Fprintf(&b, "Start Time: %s (UTC)\n", w.StartISO())
	fmt.Fprintf(&b, "End Time: %s (UTC)\n", w.EndISO())
	fmt.Fprintf(&b, "Accounts: %s\n", strings.Join(names, ", "))
	return b.String()
}
