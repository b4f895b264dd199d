package dispatch

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/blackcoderx/harrier/pkg/prepare"
	"github.com/valyala/fasthttp"
)

// Dispatcher sends prepared wire requests over HTTP using a pooled
// fasthttp.Client. The zero value is not usable; construct with New.
type Dispatcher struct {
	client *fasthttp.Client
}

// New returns a Dispatcher with a fresh connection pool.
func New() *Dispatcher {
	return &Dispatcher{client: &fasthttp.Client{}}
}

// Dispatch sends wire and returns a Response, or a *TransportError on
// failure. ctx governs cancellation: a cancelled context surfaces as
// KindCancelled regardless of how far the call had progressed.
func (d *Dispatcher) Dispatch(ctx context.Context, wire *prepare.WireRequest, opts Options) (*Response, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(wire.Method())
	req.SetRequestURI(wire.RequestURL())
	for _, h := range wire.Headers {
		req.Header.Set(h.Key, h.Value)
	}
	if len(wire.Body) > 0 {
		req.SetBody(wire.Body)
	}

	client := d.client
	if opts.Proxy != "" || !opts.VerifyTLS {
		client = d.clientFor(opts)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultOptions().Timeout
	}
	if wire.Timeout != nil {
		timeout = time.Duration(*wire.Timeout) * time.Millisecond
	}

	start := time.Now()

	done := make(chan error, 1)
	go func() {
		if opts.FollowRedirects {
			maxRedirects := opts.MaxRedirects
			if maxRedirects <= 0 {
				maxRedirects = DefaultOptions().MaxRedirects
			}
			done <- client.DoRedirects(req, resp, maxRedirects)
			return
		}
		done <- client.DoTimeout(req, resp, timeout)
	}()

	// DoRedirects has no timeout variant, so the deadline is enforced here
	// for both paths; DoTimeout usually fires first on the direct path.
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, &TransportError{Kind: KindCancelled, Message: ctx.Err().Error()}
	case <-timer.C:
		return nil, &TransportError{Kind: KindTimeout, Message: "no response within " + timeout.String()}
	case err := <-done:
		elapsed := time.Since(start).Milliseconds()
		if err != nil {
			return nil, classifyError(err)
		}
		return toResponse(resp, wire.RequestURL(), elapsed), nil
	}
}

func (d *Dispatcher) clientFor(opts Options) *fasthttp.Client {
	c := &fasthttp.Client{}
	if !opts.VerifyTLS {
		c.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit opt-in via Options.VerifyTLS
	}
	if opts.Proxy != "" {
		c.Dial = fasthttpProxyDialer(opts.Proxy)
	}
	return c
}

// fasthttpProxyDialer returns a DialFunc routing through a plain HTTP/HTTPS
// proxy address; fasthttp has no first-class proxy option, so dispatch
// dials the proxy host directly, matching the common CONNECT-less usage
// for HTTP-only collections.
func fasthttpProxyDialer(proxyAddr string) fasthttp.DialFunc {
	return func(addr string) (net.Conn, error) {
		return fasthttp.Dial(proxyAddr)
	}
}

func toResponse(resp *fasthttp.Response, finalURL string, elapsedMS int64) *Response {
	headers := make([]Header, 0, resp.Header.Len())
	resp.Header.VisitAll(func(key, value []byte) {
		headers = append(headers, Header{Key: string(key), Value: string(value)})
	})
	body := append([]byte(nil), resp.Body()...)

	return &Response{
		StatusCode: resp.StatusCode(),
		Reason:     string(resp.Header.StatusMessage()),
		Headers:    headers,
		BodyBytes:  body,
		ElapsedMS:  elapsedMS,
		FinalURL:   finalURL,
	}
}

func classifyError(err error) *TransportError {
	switch {
	case errors.Is(err, fasthttp.ErrTimeout):
		return &TransportError{Kind: KindTimeout, Message: err.Error()}
	case errors.Is(err, fasthttp.ErrTooManyRedirects):
		return &TransportError{Kind: KindTooManyRedirects, Message: err.Error()}
	case errors.Is(err, fasthttp.ErrDialTimeout):
		return &TransportError{Kind: KindTimeout, Message: err.Error()}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{Kind: KindDNSFailure, Message: err.Error()}
	}

	var tlsErr *tls.CertificateVerificationError
	if errors.As(err, &tlsErr) {
		return &TransportError{Kind: KindTLSFailure, Message: err.Error()}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if strings.Contains(opErr.Error(), "connection refused") {
			return &TransportError{Kind: KindConnectionRefused, Message: err.Error()}
		}
	}
	if strings.Contains(err.Error(), "connection refused") {
		return &TransportError{Kind: KindConnectionRefused, Message: err.Error()}
	}
	if strings.Contains(err.Error(), "tls") || strings.Contains(err.Error(), "certificate") {
		return &TransportError{Kind: KindTLSFailure, Message: err.Error()}
	}

	return &TransportError{Kind: KindProtocolError, Message: err.Error()}
}
