package opensearch

import (
	"context"
	"errors"

	"github.com/opensearch-project/opensearch-go/v2"
)

// Healthcheck returns a probe closure that verifies cluster connectivity
// with an Info call. Connect runs it once at startup; readiness endpoints
// can reuse the same closure.
func Healthcheck(client *opensearch.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if _, err := client.Info(client.Info.WithContext(ctx)); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
