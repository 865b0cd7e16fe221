//go:build dev

package oauth

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/huangang/hackfest/pkg/logger"
)

// InsecureTLS reports whether provider TLS certificates go unverified. Only
// binaries built with -tags dev skip verification.
const InsecureTLS = true

func httpClient() *http.Client {
	logger.Warnf("[OAuth] TLS verification disabled for identity providers (dev build)")
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // dev builds only
	return &http.Client{Timeout: 15 * time.Second, Transport: transport}
}
