// Package clientip resolves the client IP address of an inbound request from CDN and proxy headers.
package clientip

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

// Header names in lookup order. Headers set closer to the edge come first so a client-supplied
// X-Forwarded-For cannot outrank an address injected by the CDN.
const (
	HeaderCFConnectingIP = "CF-Connecting-IP"
	HeaderRealIP         = "X-Real-IP"
	HeaderForwardedFor   = "X-Forwarded-For"
)

// Loopback is returned when no header or peer address yields a valid IP.
const Loopback = "127.0.0.1"

// Request is the part of an inbound request the resolver and the session core read.
// Header lookups are case-insensitive.
type Request interface {
	Header(name string) string
	RemoteAddr() string
}

// GetClientIP returns the most trustworthy client IP for r:
// CF-Connecting-IP, then X-Real-IP, then the leftmost X-Forwarded-For entry, then the peer address,
// then Loopback. Values that do not parse as an IP are skipped.
func GetClientIP(r Request) string {
	if r == nil {
		return Loopback
	}
	if ip, ok := normalize(r.Header(HeaderCFConnectingIP)); ok {
		return ip
	}
	if ip, ok := normalize(r.Header(HeaderRealIP)); ok {
		return ip
	}
	if xff := r.Header(HeaderForwardedFor); xff != "" {
		first := xff
		if i := strings.Index(xff, ","); i >= 0 {
			first = xff[:i]
		}
		if ip, ok := normalize(first); ok {
			return ip
		}
	}
	if addr := strings.TrimSpace(r.RemoteAddr()); addr != "" {
		if host, _, err := net.SplitHostPort(addr); err == nil {
			addr = host
		}
		if ip, ok := normalize(addr); ok {
			return ip
		}
	}
	return Loopback
}

func normalize(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	s = strings.Trim(s, "[]")
	addr, err := netip.ParseAddr(s)
	if err != nil || addr.IsUnspecified() {
		return "", false
	}
	return addr.Unmap().String(), true
}

// HTTP adapts an *http.Request.
func HTTP(r *http.Request) Request {
	return httpRequest{r: r}
}

type httpRequest struct {
	r *http.Request
}

func (h httpRequest) Header(name string) string {
	if h.r == nil {
		return ""
	}
	return h.r.Header.Get(name)
}

func (h httpRequest) RemoteAddr() string {
	if h.r == nil {
		return ""
	}
	return h.r.RemoteAddr
}

// GRPC adapts the incoming metadata and peer of a gRPC server context.
func GRPC(ctx context.Context) Request {
	md, _ := metadata.FromIncomingContext(ctx)
	g := grpcRequest{md: md}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		g.remote = p.Addr.String()
	}
	return g
}

type grpcRequest struct {
	md     metadata.MD
	remote string
}

func (g grpcRequest) Header(name string) string {
	if vals := g.md.Get(name); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func (g grpcRequest) RemoteAddr() string {
	return g.remote
}

// Headers is a Request backed by a plain map, for callers that already extracted headers.
type Headers struct {
	Values map[string]string
	Remote string
}

// Header returns the value for name, matching keys case-insensitively.
func (h Headers) Header(name string) string {
	if v, ok := h.Values[name]; ok {
		return v
	}
	for k, v := range h.Values {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func (h Headers) RemoteAddr() string {
	return h.Remote
}
