package server

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger logs every request to out, except the given paths. Snapshot
// frames own stdout in monitor mode, so serve-mode logs go to stderr; skip
// keeps load-balancer health probes out of the output.
func requestLogger(out io.Writer, skip ...string) func(next http.Handler) http.Handler {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return middleware.RequestLogger(&filteredLogFormatter{
		skipped: skipped,
		base: &middleware.DefaultLogFormatter{
			Logger:  log.New(out, "gputop: ", log.LstdFlags),
			NoColor: true,
		},
	})
}

type filteredLogFormatter struct {
	skipped map[string]struct{}
	base    middleware.LogFormatter
}

func (f *filteredLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	if _, ok := f.skipped[r.URL.Path]; ok {
		return silentLogEntry{}
	}
	return f.base.NewLogEntry(r)
}

type silentLogEntry struct{}

func (silentLogEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
}

func (silentLogEntry) Panic(v interface{}, stack []byte) {}
