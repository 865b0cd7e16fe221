package middleware

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/hackfest/pkg/logger"
)

const auditBodyLimit = 2000

var sensitiveField = regexp.MustCompile(`(?i)("(?:password|secret|token|access_token|slack_webhook_url)"\s*:\s*)"[^"]*"`)

// AuditLog records write operations (POST/PUT/DELETE) with the acting user
// and organization.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != "POST" && method != "PUT" && method != "DELETE" {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			body = maskSensitiveFields(string(raw))
			if len(body) > auditBodyLimit {
				body = body[:auditBodyLimit] + "...[truncated]"
			}
		}

		c.Next()

		module, action := parseRouteInfo(c.FullPath(), method)
		status := c.Writer.Status()

		event := logger.Info()
		if status >= 400 {
			event = logger.Warn()
		}
		event.
			Bool("audit", true).
			Str("request_id", c.GetString(logger.ContextRequestID)).
			Uint("user_id", GetUserID(c)).
			Str("user_name", GetUserName(c)).
			Str("role", GetRole(c)).
			Uint("organization_id", OrganizationID(c)).
			Str("module", module).
			Str("action", action).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Str("body", body).
			Msg("audit")
	}
}

// parseRouteInfo extracts module and action from a gin route pattern,
// e.g. "/api/projects/:id/vote" + POST gives ("projects", "vote").
func parseRouteInfo(fullPath, method string) (module, action string) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(fullPath, "/api"), "/"), "/")
	module = parts[0]
	if module == "" {
		module = "unknown"
	}

	last := parts[len(parts)-1]
	if len(parts) > 1 && !strings.HasPrefix(last, ":") {
		return module, last
	}

	switch method {
	case "POST":
		action = "create"
	case "PUT":
		action = "update"
	case "DELETE":
		action = "delete"
	default:
		action = strings.ToLower(method)
	}
	return module, action
}

func maskSensitiveFields(body string) string {
	return sensitiveField.ReplaceAllString(body, `$1"***"`)
}
