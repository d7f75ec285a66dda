package security

import (
	"fmt"
	"net/http"
	"time"
)

// apiCSP forbids every fetch and embedding. Responses are JSON or plain
// text and never rendered as a document.
const apiCSP = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'"

// HeadersOptions tunes the response headers applied to every request.
type HeadersOptions struct {
	// HSTSMaxAge is sent over TLS only. Zero disables HSTS.
	HSTSMaxAge time.Duration
	// CrossOrigin relaxes the resource policy when browser clients on
	// other origins are allowed through CORS.
	CrossOrigin bool
}

func DefaultHeadersOptions() HeadersOptions {
	return HeadersOptions{HSTSMaxAge: 365 * 24 * time.Hour}
}

// Headers sets a fixed header set computed once at construction.
type Headers struct {
	static http.Header
	hsts   string
}

func NewHeaders(opts HeadersOptions) *Headers {
	corp := "same-site"
	if opts.CrossOrigin {
		corp = "cross-origin"
	}
	h := &Headers{
		static: http.Header{
			"Content-Security-Policy":      {apiCSP},
			"X-Content-Type-Options":       {"nosniff"},
			"X-Frame-Options":              {"DENY"},
			"Referrer-Policy":              {"no-referrer"},
			"Permissions-Policy":           {"geolocation=(), microphone=(), camera=(), payment=()"},
			"Cross-Origin-Opener-Policy":   {"same-origin"},
			"Cross-Origin-Resource-Policy": {corp},
		},
	}
	if secs := int(opts.HSTSMaxAge / time.Second); secs > 0 {
		h.hsts = fmt.Sprintf("max-age=%d; includeSubDomains", secs)
	}
	return h
}

// Values returns a copy of the headers sent on plain HTTP.
func (h *Headers) Values() http.Header {
	return h.static.Clone()
}

func (h *Headers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dst := w.Header()
		for k, v := range h.static {
			dst[k] = append([]string(nil), v...)
		}
		if r.TLS != nil && h.hsts != "" {
			dst.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// NoStore marks responses as uncacheable. Goal data and advice are
// personal and change on every mutation.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
