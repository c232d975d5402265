package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"housing-listings/utils"
)

// NewRouter registers every route at the root and again under /api, and
// wraps the result in CORS handling for the given origins.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogger(h.logger))

	register(r, h)
	register(r.PathPrefix("/api").Subrouter(), h)

	return withCORS(r, allowedOrigins)
}

func register(r *mux.Router, h *Handler) {
	r.HandleFunc("/listings", h.listUserListings).Methods(http.MethodGet)
	r.HandleFunc("/listings", h.createUserListing).Methods(http.MethodPost)
	r.HandleFunc("/zillow-listings", h.listScrapedListings).Methods(http.MethodGet)
	r.HandleFunc("/fetch-zillow-listings", h.fetchZillowListings).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *utils.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("[api] %s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
		})
	}
}

// withCORS answers preflight requests before they reach the router's method
// matching. A "*" entry allows every origin; an empty list disables CORS.
func withCORS(next http.Handler, allowedOrigins []string) http.Handler {
	origins := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}

	if len(origins) == 0 {
		return next
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.OptionStatusCode(http.StatusNoContent),
	)(next)
}
