package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Directive is one Content-Security-Policy directive.
type Directive struct {
	Name    string
	Sources []string
}

// CSP is a Content-Security-Policy rendered in directive order.
type CSP []Directive

func (c CSP) String() string {
	parts := make([]string, 0, len(c))
	for _, d := range c {
		if len(d.Sources) == 0 {
			parts = append(parts, d.Name)
			continue
		}
		parts = append(parts, d.Name+" "+strings.Join(d.Sources, " "))
	}
	return strings.Join(parts, "; ")
}

// HeadersConfig holds the headers set on every response. Pages and API
// responses get different policies: pages load /static/app.js and
// /static/app.css and call the API with fetch, API responses load nothing.
type HeadersConfig struct {
	PageCSP CSP
	APICSP  CSP

	// IsAPI selects APICSP and no-store caching.
	IsAPI func(r *http.Request) bool

	// Features disabled through Permissions-Policy.
	DisabledFeatures []string

	HSTSMaxAge     time.Duration
	FrameOptions   string
	ReferrerPolicy string
}

// DefaultHeadersConfig matches what web/templates load.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		PageCSP: CSP{
			{"default-src", []string{"'none'"}},
			{"script-src", []string{"'self'"}},
			{"style-src", []string{"'self'"}},
			{"connect-src", []string{"'self'"}},
			{"form-action", []string{"'self'"}},
			{"base-uri", []string{"'none'"}},
			{"frame-ancestors", []string{"'none'"}},
		},
		APICSP: CSP{
			{"default-src", []string{"'none'"}},
			{"frame-ancestors", []string{"'none'"}},
		},
		IsAPI: func(r *http.Request) bool {
			return strings.HasPrefix(r.URL.Path, "/api/")
		},
		DisabledFeatures: []string{
			"camera", "geolocation", "microphone", "payment", "usb",
			"clipboard-read", "display-capture", "fullscreen",
		},
		HSTSMaxAge:     365 * 24 * time.Hour,
		FrameOptions:   "DENY",
		ReferrerPolicy: "same-origin",
	}
}

// permissionsPolicy renders "camera=(), geolocation=()".
func (c HeadersConfig) permissionsPolicy() string {
	parts := make([]string, len(c.DisabledFeatures))
	for i, f := range c.DisabledFeatures {
		parts[i] = f + "=()"
	}
	return strings.Join(parts, ", ")
}

// HeadersMiddleware applies security headers to responses
type HeadersMiddleware struct {
	config      HeadersConfig
	pageCSP     string
	apiCSP      string
	permissions string
	hsts        string
}

// NewHeadersMiddleware renders the configured policies once.
func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{
		config:      config,
		pageCSP:     config.PageCSP.String(),
		apiCSP:      config.APICSP.String(),
		permissions: config.permissionsPolicy(),
	}
	if secs := int64(config.HSTSMaxAge / time.Second); secs > 0 {
		h.hsts = fmt.Sprintf("max-age=%d; includeSubDomains", secs)
	}
	return h
}

// Middleware returns the HTTP middleware function
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", h.config.FrameOptions)
		headers.Set("Referrer-Policy", h.config.ReferrerPolicy)
		headers.Set("Cross-Origin-Opener-Policy", "same-origin")
		headers.Set("Cross-Origin-Resource-Policy", "same-origin")
		if h.permissions != "" {
			headers.Set("Permissions-Policy", h.permissions)
		}

		if h.config.IsAPI != nil && h.config.IsAPI(r) {
			headers.Set("Content-Security-Policy", h.apiCSP)
			// Month documents are household finances.
			headers.Set("Cache-Control", "no-store")
		} else if h.pageCSP != "" {
			headers.Set("Content-Security-Policy", h.pageCSP)
		}

		if r.TLS != nil && h.hsts != "" {
			headers.Set("Strict-Transport-Security", h.hsts)
		}

		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware lets browsers cache /static/ for maxAge. Asset names
// are not content-hashed, so they are revalidated after it expires.
func StaticAssetMiddleware(maxAge time.Duration) func(http.Handler) http.Handler {
	secs := int64(maxAge / time.Second)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secs > 0 {
				w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", secs))
			} else {
				w.Header().Set("Cache-Control", "no-cache")
			}
			next.ServeHTTP(w, r)
		})
	}
}
