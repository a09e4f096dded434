// internal/tenant/resolver.go
//
// Host → routing key.
//
// Context
// -------
// `Resolve` is a pure string function over (host, base domains).  It does
// no I/O, holds no state, and is safe to call from any goroutine.
//
//   • host equals a base domain       → no tenant (platform request).
//   • host is "<key>.<base>"          → key, if non-empty and dot-free.
//   • host is "<a>.<b>.<base>"        → no tenant (one level only).
//   • nothing matches                 → no tenant.
//
// Base domains are tried in configured order.  An exact match stops the
// search at once; a rejected candidate (empty or nested) lets the next base
// domain try.  The first accepted key wins.  Hosts and base domains compare
// case-insensitively.
package tenant

import "strings"

// Resolve returns the routing key for host, and false when the request is
// platform-level.  Any ":port" suffix on host is ignored.
func Resolve(host string, baseDomains []string) (string, bool) {
	host = strings.ToLower(stripPort(host))
	for _, base := range baseDomains {
		base = strings.ToLower(base)
		if host == base {
			return "", false
		}
		suffix := "." + base
		if !strings.HasSuffix(host, suffix) {
			continue
		}
		key := strings.TrimSuffix(host, suffix)
		if key == "" || strings.Contains(key, ".") {
			continue
		}
		return key, true
	}
	return "", false
}

// stripPort removes :port from the Host header when present.
func stripPort(h string) string {
	if i := strings.IndexByte(h, ':'); i != -1 {
		return h[:i]
	}
	return h
}
