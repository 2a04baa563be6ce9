package log

import (
	"net/http"
	"time"
)

// Transport is an http.RoundTripper for outbound calls. It forwards the
// request ID found in the request context and logs each round trip through
// the context logger.
type Transport struct {
	Base http.RoundTripper
}

// NewTransport wraps base, or http.DefaultTransport when base is nil.
func NewTransport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	l := Ctx(ctx)
	start := time.Now()

	if reqID := RequestID(ctx); reqID != "" && req.Header.Get(HeaderRequestID) == "" {
		req = req.Clone(ctx)
		req.Header.Set(HeaderRequestID, reqID)
	}

	resp, err := t.Base.RoundTrip(req)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		l.Warn().Err(err).
			Str(FieldMethod, req.Method).
			Str(FieldURL, req.URL.String()).
			Float64(FieldLatency, latency).
			Msg("outbound request failed")
		return nil, err
	}

	l.Debug().
		Str(FieldMethod, req.Method).
		Str(FieldURL, req.URL.String()).
		Int(FieldStatus, resp.StatusCode).
		Float64(FieldLatency, latency).
		Msg("outbound request completed")
	return resp, nil
}
