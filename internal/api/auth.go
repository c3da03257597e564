package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"shareit/internal/config"
)

// HTTPAuth проверяет API-ключ и лимит запросов перед основным обработчиком.
type HTTPAuth struct {
	cfg config.APIConfig

	clientsByAPIKey map[string]config.APIClientKey
	throttle        *clientThrottle
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}

	return &HTTPAuth{
		cfg:             cfg,
		clientsByAPIKey: m,
		throttle:        newClientThrottle(cfg),
	}
}

const (
	apiKeyHeaderDefault = "x-api-key"
	clientKeyUnknown    = "unknown"
)

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled {
			if !a.checkAuth(r) {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
		}
		if !a.allow(r) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) checkAuth(r *http.Request) bool {
	apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader()))
	if apiKey == "" {
		return false
	}

	client, ok := a.clientsByAPIKey[apiKey]
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(client.Key), []byte(apiKey)) == 1
}

func (a *HTTPAuth) allow(r *http.Request) bool {
	if a.cfg.RateLimit.RPS <= 0 {
		return true
	}
	return a.throttle.allow(a.clientKey(r))
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader())); apiKey != "" {
		return apiKey
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return clientKeyUnknown
}

func (a *HTTPAuth) apiKeyHeader() string {
	header := strings.TrimSpace(a.cfg.Auth.HeaderAPIKey)
	if header == "" {
		header = apiKeyHeaderDefault
	}
	return header
}
