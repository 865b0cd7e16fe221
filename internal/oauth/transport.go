//go:build !dev

package oauth

import (
	"net/http"
	"time"
)

// InsecureTLS reports whether provider TLS certificates go unverified.
const InsecureTLS = false

func httpClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}
