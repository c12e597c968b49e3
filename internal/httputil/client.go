// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "paper-harvester/0.1"

// NewClient builds the resty client shared by one component. Resty's own
// retry machinery is left off; callers retry explicitly through Retry.
func NewClient(timeout time.Duration, userAgent string) *resty.Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetHeader("User-Agent", userAgent)
	c.SetRetryCount(0)
	return c
}
