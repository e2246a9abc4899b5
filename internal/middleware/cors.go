package middleware

import (
	"net/http"
	"strings"
)

// CORS allows cross-origin calls from origin ("*" for any) and answers preflight requests.
func CORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if origin == "*" {
				h.Set("Access-Control-Allow-Origin", "*")
			} else if reqOrigin := r.Header.Get("Origin"); allowed(origin, reqOrigin) {
				h.Set("Access-Control-Allow-Origin", reqOrigin)
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func allowed(list, origin string) bool {
	if origin == "" {
		return false
	}
	for _, o := range strings.Split(list, ",") {
		if strings.TrimSpace(o) == origin {
			return true
		}
	}
	return false
}
