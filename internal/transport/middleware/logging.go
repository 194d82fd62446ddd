package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/expense-approval/pkg/logger"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// maxLoggedBody bounds how much of a body ends up in a log record.
const maxLoggedBody = 4 << 10

const filtered = "[FILTERED]"

// sensitiveFields are matched as substrings of lower-cased header and JSON keys.
var sensitiveFields = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"key",
	"session",
	"credential",
	"auth",
	"cookie",
}

// redactor masks sensitive values before bodies and headers are logged.
// exact keys are matched whole, so response error codes survive while request
// reset codes do not.
type redactor struct {
	contains []string
	exact    []string
}

var (
	requestRedactor  = redactor{contains: sensitiveFields, exact: []string{"code", "confirm"}}
	responseRedactor = redactor{contains: sensitiveFields}
)

// Logging writes one record per request and one per response through the
// context logger, so fields added by RequestID land on both.
func Logging(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lg := logger.FromContext(r.Context(), base)

			// only the logged prefix is buffered; the handler still reads the full body
			var reqBody []byte
			if r.Body != nil && isJSON(r.Header.Get("Content-Type")) {
				reqBody, _ = io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
				r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(reqBody), r.Body), Closer: r.Body}
			}

			lg.InfoContext(r.Context(), "incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", requestRedactor.headers(r.Header),
				"body", requestRedactor.body(reqBody),
			)

			captured := &cappedBuffer{limit: maxLoggedBody}
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(captured)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			var respBody string
			if isJSON(ww.Header().Get("Content-Type")) {
				respBody = responseRedactor.body(captured.Bytes())
			}

			lg.Log(r.Context(), level, "response",
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", ww.BytesWritten(),
				"body", respBody,
			)
		})
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

// cappedBuffer keeps the first limit bytes written to it and drops the rest.
type cappedBuffer struct {
	bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.Len(); room > 0 {
		if len(p) > room {
			b.Buffer.Write(p[:room])
		} else {
			b.Buffer.Write(p)
		}
	}
	return len(p), nil
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "application/json")
}

func (rd redactor) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if rd.sensitive(strings.ToLower(name)) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// body renders a JSON body with sensitive keys masked. Anything that does not
// parse, including a truncated body, is replaced by a size marker.
func (rd redactor) body(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	var data any
	if err := json.Unmarshal(b, &data); err != nil {
		return "[UNPARSED " + humanSize(len(b)) + "]"
	}

	out, err := json.Marshal(rd.value(data))
	if err != nil {
		return "[UNPARSED " + humanSize(len(b)) + "]"
	}
	return string(out)
}

func (rd redactor) value(data any) any {
	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			if rd.sensitive(strings.ToLower(key)) {
				out[key] = filtered
				continue
			}
			out[key] = rd.value(value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = rd.value(item)
		}
		return out
	default:
		return v
	}
}

func (rd redactor) sensitive(lowerKey string) bool {
	for _, field := range rd.contains {
		if strings.Contains(lowerKey, field) {
			return true
		}
	}
	for _, field := range rd.exact {
		if lowerKey == field {
			return true
		}
	}
	return false
}

func humanSize(n int) string {
	if n >= maxLoggedBody {
		return ">4KiB"
	}
	return strconv.Itoa(n) + "B"
}
