package config

import (
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

const redacted = "REDACTED"

// YAML renders the effective configuration with secrets replaced by
// REDACTED. Passwords inside URL-style DSNs are redacted in place.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(redact(c.settings))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

func redact(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			switch {
			case isSecretKey(k):
				if s, ok := inner.(string); ok && s == "" {
					out[k] = s
				} else {
					out[k] = redacted
				}
			case k == "dsn":
				out[k] = redactDSN(fmt.Sprint(inner))
			default:
				out[k] = redact(inner)
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = redact(inner)
		}
		return out
	default:
		return v
	}
}

func isSecretKey(k string) bool {
	k = strings.ToLower(k)
	return strings.Contains(k, "secret") || strings.Contains(k, "password")
}

// redactDSN masks the password of a URL DSN, or the password= field of a
// key/value DSN.
func redactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), redacted)
			return u.String()
		}
		return dsn
	}

	fields := strings.Fields(dsn)
	for i, f := range fields {
		if key, _, ok := strings.Cut(f, "="); ok && strings.EqualFold(key, "password") {
			fields[i] = key + "=" + redacted
		}
	}
	return strings.Join(fields, " ")
}
