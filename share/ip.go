package share

import (
	"net"
	"net/http"
	"strings"
)

// RemoteIP returns the best-guess client address for a request, preferring
// X-Forwarded-For entries over the socket peer address.
func RemoteIP(r *http.Request) string {
	ips := strings.Split(r.Header.Get("X-Forwarded-For"), ",")

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ips = append(ips, r.RemoteAddr)
	} else {
		ips = append(ips, ip)
	}

	for _, ipStr := range ips {
		parsed := net.ParseIP(strings.TrimSpace(ipStr))
		if parsed != nil {
			return parsed.String()
		}
	}

	return ips[0]
}
