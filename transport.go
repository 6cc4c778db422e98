package goGuard

import "net/http"

// Transport wraps base so that any 401 response tears the local session down. A 403
// from an application API is a permission answer, not a session verdict, and passes
// through. Use it for application API calls that ride on the session cookies.
func (e *Engine) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &rejectingTransport{engine: e, base: base}
}

type rejectingTransport struct {
	engine *Engine
	base   http.RoundTripper
}

func (t *rejectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		t.engine.SessionRejected(req.Context())
	}
	return resp, nil
}

// APIClient returns an HTTP client for application API calls that shares the
// session cookies and fails closed on rejection.
func (e *Engine) APIClient() *http.Client {
	hc := &http.Client{Transport: e.Transport(nil)}
	if e.client != nil {
		hc.Jar = e.client.Jar()
	}
	return hc
}
