// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is the shared client for calls to the moderation service and
// the push gateway. Short timeout: these calls run inside request handlers
// and timer cycles and must not stall them.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
