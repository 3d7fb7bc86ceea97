package melissa

import (
	"net/url"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// LogConfig selects the optional fields written with each request log line.
type LogConfig struct {
	Query        bool
	RequestBody  bool
	ResponseBody bool
}

type requestLog struct {
	method   string
	service  ServiceName
	url      string
	query    url.Values
	status   int
	duration time.Duration
	reqBody  []byte
	respBody []byte
	err      error
}

// logRequest writes one line per dispatched request. Non-2xx answers are
// logged at warn, transport and body read failures at error.
func logRequest(logger log.Logger, cfg LogConfig, r requestLog) {
	path := r.url
	if u, err := url.Parse(r.url); err == nil {
		path = u.Path
	}
	keyvals := []interface{}{
		"msg", "melissa request",
		"method", r.method,
		"service", string(r.service),
		"path", path,
		"status", r.status,
		"duration", r.duration,
	}
	if cfg.Query {
		keyvals = append(keyvals, "query", redactQuery(r.query).Encode())
	}
	if cfg.RequestBody && len(r.reqBody) > 0 {
		keyvals = append(keyvals, "request_body", string(r.reqBody))
	}
	if cfg.ResponseBody && len(r.respBody) > 0 {
		keyvals = append(keyvals, "response_body", string(r.respBody))
	}

	var l log.Logger
	switch {
	case r.err != nil:
		l = level.Error(logger)
		keyvals = append(keyvals, "err", r.err)
	case !isSuccess(r.status):
		l = level.Warn(logger)
	default:
		l = level.Info(logger)
	}
	_ = l.Log(keyvals...)
}

// redactQuery hides the credential carried in id.
func redactQuery(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	if out.Get("id") != "" {
		out.Set("id", "REDACTED")
	}
	return out
}
