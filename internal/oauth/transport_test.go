//go:build !dev

package oauth

import (
	"net/http"
	"testing"
)

func TestDefaultBuildVerifiesTLS(t *testing.T) {
	if InsecureTLS {
		t.Fatal("default build must verify provider certificates")
	}
	c := httpClient()
	if tr, ok := c.Transport.(*http.Transport); ok && tr.TLSClientConfig != nil && tr.TLSClientConfig.InsecureSkipVerify {
		t.Fatal("default transport skips TLS verification")
	}
	if c.Timeout == 0 {
		t.Error("client should have a timeout")
	}
}
