package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
)

// NewRouter builds the chi router binding every endpoint in this package's
// handlers, with the standard middleware stack the HTTP surface uses:
// request IDs, real client IPs, structured request logging, and panic
// recovery. When gzipChunks is true, responses are transparently
// gzip-compressed for clients that send Accept-Encoding: gzip; clients
// that don't are served the uncompressed byte layout unchanged.
func NewRouter(logger *slog.Logger, s *Server, gzipChunks bool) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/", s.Root)
	r.Get("/voxel-grid", s.PreprocessQuery)
	r.Post("/voxel-grid/preprocess", s.PreprocessBody)
	r.Get("/voxel-grid/chunk", s.Chunk)
	r.Get("/voxel-grid/files", s.Files)

	var handler http.Handler = r
	if gzipChunks {
		wrapper, err := gzhttp.NewWrapper(gzhttp.MinSize(0))
		if err == nil {
			handler = wrapper(r)
		} else {
			logger.Warn("gzip wrapper disabled", "error", err)
		}
	}
	return handler
}

// requestLogger logs each request's method, path, status, and duration at
// Info level, mirroring the codegraph example's slog-based request logger.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}
