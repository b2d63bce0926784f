// Package trace assigns request ids, logs each HTTP request once it
// completes and keeps running request counters.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"spendwise/internal/log"
)

// RequestIDHeader carries the id in both directions.
const RequestIDHeader = "X-Request-ID"

const maxInboundID = 64

type requestIDKey struct{}

// Metrics is a snapshot of the request counters.
type Metrics struct {
	TotalRequests       int64
	ServerErrors        int64
	AverageResponseTime time.Duration
}

type Tracer struct {
	logger   *log.Logger
	clientIP func(*http.Request) string

	total        atomic.Int64
	serverErrors atomic.Int64
	totalMicros  atomic.Int64
}

// New returns a Tracer logging through logger. clientIP may be nil.
func New(logger *log.Logger, clientIP func(*http.Request) string) *Tracer {
	if logger == nil {
		logger = log.Discard()
	}
	if clientIP == nil {
		clientIP = func(*http.Request) string { return "" }
	}
	return &Tracer{logger: logger.WithComponent(log.ComponentTrace), clientIP: clientIP}
}

// Wrap tags each request with an id, echoes it in RequestIDHeader and logs
// the outcome. A caller-supplied id is kept when it looks sane.
func (t *Tracer) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := t.clientIP(r)

		id := r.Header.Get(RequestIDHeader)
		if !validID(id) {
			id = NewRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		r = r.WithContext(ctx)
		w.Header().Set(RequestIDHeader, id)

		logger := t.logger.With(log.FieldRequestID, id)
		logger.DebugContext(ctx, "HTTP request started",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, ip)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		t.total.Add(1)
		t.totalMicros.Add(elapsed.Microseconds())
		if sw.status >= 500 {
			t.serverErrors.Add(1)
		}
		logger.LogHTTPEnd(ctx, r, sw.status, elapsed.Milliseconds(), ip)
	})
}

// Snapshot reads the counters.
func (t *Tracer) Snapshot() Metrics {
	m := Metrics{
		TotalRequests: t.total.Load(),
		ServerErrors:  t.serverErrors.Load(),
	}
	if m.TotalRequests > 0 {
		m.AverageResponseTime = time.Duration(t.totalMicros.Load()/m.TotalRequests) * time.Microsecond
	}
	return m
}

// statusWriter remembers the first status written.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// NewRequestID returns "req_" followed by 16 random hex digits.
func NewRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "req_" + strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return "req_" + hex.EncodeToString(b)
}

// FromContext returns the id Wrap stored, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID is FromContext for a request; it fits log.RequestIDMiddleware.
func RequestID(r *http.Request) string {
	return FromContext(r.Context())
}

func validID(id string) bool {
	if id == "" || len(id) > maxInboundID {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
