package mid

import (
	"net/http"
	"strconv"
	"time"

	"github.com/humwire/humwire/pkg/metrics"
)

// Metrics records request counts, latency and in-flight requests in reg.
// Requests are labelled by their ServeMux pattern so path parameters do not
// explode the label space. It must wrap the ServeMux directly, since the
// mux records the pattern on the request it receives.
func Metrics(reg *metrics.Registry) Middleware {
	inFlight := reg.Gauge("http_requests_in_flight", "Requests currently being served.")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			inFlight.Inc()
			defer inFlight.Dec()

			sw := wrap(w)
			next.ServeHTTP(sw, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			reg.Counter(metrics.WithLabels("http_requests_total",
				"route", route, "code", strconv.Itoa(sw.status)), "HTTP requests by route and status.").Inc()
			reg.Histogram(metrics.WithLabels("http_request_duration_seconds", "route", route),
				"HTTP request latency.", nil).Since(start)
		})
	}
}
