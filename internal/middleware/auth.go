package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/edupay/agency-service/internal/config"
)

// CronSecretHeader carries the shared secret the external scheduler
// authenticates with.
const CronSecretHeader = "X-Cron-Secret"

// CronAuth rejects requests whose shared secret is missing or wrong. A
// rejected request performs no work and leaves no execution log entry.
func CronAuth(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := r.Header.Get(CronSecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(cfg.CronSecret)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
