package versioning

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Version negotiation headers.
const (
	AcceptVersionHeader  = "Accept-Version"
	CurrentVersionHeader = "X-Current-Version"
)

// Middleware advertises the server's contract version on every response and
// rejects clients that pin an incompatible Accept-Version. Requests without
// the header are served at the current version.
func Middleware(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(CurrentVersionHeader, Current.String())

			requested := r.Header.Get(AcceptVersionHeader)
			if requested == "" {
				next.ServeHTTP(w, r)
				return
			}

			version, err := Parse(requested)
			if err != nil {
				logger.WithField("version_string", requested).Warn("Invalid Accept-Version header")
				next.ServeHTTP(w, r)
				return
			}

			if !version.IsCompatible() {
				logger.WithFields(logrus.Fields{
					"requested": version.String(),
					"current":   Current.String(),
				}).Warn("Rejected request with incompatible API version")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotAcceptable)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"ok":      false,
					"error":   "unsupported API version",
					"current": Current.String(),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
