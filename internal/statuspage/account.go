package statuspage

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/dokzlo13/deskops/internal/rest"
)

// CheckAccount verifies that the public page of an account answers 200.
// urlPattern is a printf pattern such as "https://%s.freshstatus.io".
func CheckAccount(ctx context.Context, urlPattern, account string) error {
	resp, err := resty.New().
		SetTimeout(rest.DefaultTimeout).
		R().
		SetContext(ctx).
		Get(fmt.Sprintf(urlPattern, account))
	if err != nil {
		return fmt.Errorf("error checking account %s: %w", account, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("account %s does not exist (status %d)", account, resp.StatusCode())
	}
	return nil
}
