package middleware

import (
	"net/http"
)

const (
	// MaxHeaderLength is the maximum allowed length for a single header value
	MaxHeaderLength = 8000

	// DefaultMaxBodySize is the default maximum request body size (10MB)
	DefaultMaxBodySize = 10 * 1024 * 1024
)

// NewRequestValidationMiddleware rejects oversized or malformed requests
// before any proxying work happens. JSON well-formedness is not checked
// here; that decision belongs to the proxy's strict-body setting.
func NewRequestValidationMiddleware(maxBodySize int64) func(http.Handler) http.Handler {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for name, values := range r.Header {
				for _, v := range values {
					if len(v) > MaxHeaderLength {
						http.Error(w, "Header "+name+" exceeds maximum length", http.StatusBadRequest)
						return
					}
				}
			}

			if r.ContentLength > maxBodySize {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}

			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
			}

			next.ServeHTTP(w, r)
		})
	}
}
