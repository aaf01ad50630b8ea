package connection

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

// retry runs op with bounded exponential backoff
func (c *Connection) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	if c.retryInterval > 0 {
		b.InitialInterval = c.retryInterval
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, c.retryAttempts), ctx))
}
