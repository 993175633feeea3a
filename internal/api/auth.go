package api

import (
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"

	"slotnik/internal/config"

	"golang.org/x/time/rate"
)

const (
	permReadAvailability  = "read:availability"
	permWriteSchedule     = "write:schedule"
	permWriteReservations = "write:reservations"
)

// HTTPAuth checks api keys, per-key permissions and a per-client token
// bucket.
type HTTPAuth struct {
	cfg             config.APIConfig
	clientsByAPIKey map[string]config.APIClientKey
	limiters        sync.Map
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clientsByAPIKey: m}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(r); err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					status = http.StatusForbidden
				}
				writeError(w, status, err.Error())
				return
			}
		}
		if !a.allowRate(r) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	header := strings.TrimSpace(a.cfg.Auth.HeaderAPIKey)
	if header == "" {
		header = "x-api-key"
	}

	apiKey := strings.TrimSpace(r.Header.Get(header))
	if apiKey == "" {
		return errMissingAPIKey
	}

	var client config.APIClientKey
	var found bool
	for key, c := range a.clientsByAPIKey {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			client = c
			found = true
		}
	}
	if !found {
		return errInvalidAPIKey
	}

	return a.checkPermissions(client, r)
}

func (a *HTTPAuth) checkPermissions(client config.APIClientKey, r *http.Request) error {
	required := requiredPermission(r)
	if required == "" {
		return nil
	}
	// If permissions list is empty, treat as allow-all.
	if len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermission(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/availability"):
		return permReadAvailability
	case strings.HasPrefix(path, "/api/v1/hosts"):
		return permWriteSchedule
	case strings.HasPrefix(path, "/api/v1/reservations"):
		return permWriteReservations
	}
	return ""
}

func (a *HTTPAuth) allowRate(r *http.Request) bool {
	if a.cfg.RateLimit.RPS <= 0 {
		return true
	}
	return a.getLimiter(a.clientKey(r)).Allow()
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	header := strings.TrimSpace(a.cfg.Auth.HeaderAPIKey)
	if header == "" {
		header = "x-api-key"
	}
	if apiKey := strings.TrimSpace(r.Header.Get(header)); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}
