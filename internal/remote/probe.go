package remote

import (
	"context"
	"errors"
	"net/http"

	"github.com/kassir-pos/possync/internal/sale"
)

// Probe reports whether the backend is reachable. Any HTTP answer below
// 500 counts as reachable; a rejected key is still connectivity.
func (c *Client) Probe(ctx context.Context) error {
	err := c.do(ctx, http.MethodHead, c.baseURL+"/rest/v1/", nil, nil)
	if err == nil {
		return nil
	}
	var serr *statusError
	if errors.As(err, &serr) && serr.StatusCode < 500 {
		return nil
	}
	return sale.NetworkError("probe backend", err)
}
