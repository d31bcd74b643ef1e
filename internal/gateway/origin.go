// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/hlsvault/internal/asset"
	"github.com/ManuGH/hlsvault/internal/fault"
	xglog "github.com/ManuGH/hlsvault/internal/log"
	"github.com/ManuGH/hlsvault/internal/metrics"
)

// Headers sent on every upstream request. Some CDN edges reject clients
// without a browser user agent.
const (
	UpstreamUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	acceptIdentity       = "identity"
	acceptIdentityStrict = "identity;q=1, *;q=0"
)

const (
	opFetch = "fetch from CDN"
	opRetry = "retry after 501"
	opProbe = "probe CDN"
)

// ErrBodyTooLarge is reported when an upstream body exceeds the configured cap.
var ErrBodyTooLarge = errors.New("upstream body exceeds size limit")

// origin fetches resources from the CDN.
type origin struct {
	base         *url.URL
	client       *http.Client
	timeout      time.Duration
	probeTimeout time.Duration
	maxBody      int64
}

// upstreamResponse is a fully read CDN response.
type upstreamResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// URL returns the origin URL for an object path such as videos/demo/stream.m3u8.
func (o *origin) URL(objectPath string) string {
	u := *o.base
	u.Path = strings.TrimSuffix(o.base.Path, "/") + "/" + objectPath
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// Fetch returns the body of a 200 response. A 501 is retried once with an
// identity-only request; any other non-200 is an upstream fault carrying the
// CDN status and body.
func (o *origin) Fetch(ctx context.Context, req asset.Request) ([]byte, error) {
	target := o.URL(req.Path())
	logger := xglog.FromContext(ctx)

	resp, err := o.do(ctx, req.Kind, opFetch, http.MethodGet, target, acceptIdentity, o.timeout)
	if err != nil {
		return nil, err
	}

	switch resp.Status {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotImplemented:
		metrics.IncUpstreamRetry()
		logger.Warn().
			Str(xglog.FieldEvent, "gateway.upstream_retry").
			Str(xglog.FieldOriginURL, target).
			Int(xglog.FieldAttempt, 2).
			Msg("CDN returned 501, retrying with identity-only encoding")

		resp, err = o.do(ctx, req.Kind, opRetry, http.MethodGet, target, acceptIdentityStrict, o.timeout)
		if err != nil {
			return nil, err
		}
		if resp.Status == http.StatusOK {
			return resp.Body, nil
		}
		return nil, fault.Upstream(opRetry, resp.Status, "")
	default:
		return nil, fault.Upstream(opFetch, resp.Status, strings.ToValidUTF8(string(resp.Body), ""))
	}
}

// Probe issues a HEAD for objectPath and returns the status and headers
// without a body.
func (o *origin) Probe(ctx context.Context, objectPath string) (upstreamResponse, error) {
	resp, err := o.do(ctx, asset.Classify(objectPath), opProbe, http.MethodHead, o.URL(objectPath), acceptIdentity, o.probeTimeout)
	if err != nil {
		return upstreamResponse{}, err
	}
	return *resp, nil
}

func (o *origin) do(ctx context.Context, kind asset.Kind, op, method, target, acceptEncoding string, timeout time.Duration) (*upstreamResponse, error) {
	logger := xglog.FromContext(ctx)
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("User-Agent", UpstreamUserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", acceptEncoding)
	req.Header.Set("Connection", "keep-alive")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, o.classify(ctx, kind, op, target, start, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body []byte
	if method != http.MethodHead {
		body, err = io.ReadAll(io.LimitReader(resp.Body, o.maxBody+1))
		if err != nil {
			return nil, o.classify(ctx, kind, op, target, start, err)
		}
		if int64(len(body)) > o.maxBody {
			return nil, o.classify(ctx, kind, op, target, start, ErrBodyTooLarge)
		}
	}

	elapsed := time.Since(start)
	result := metrics.ResultSuccess
	if resp.StatusCode != http.StatusOK {
		result = metrics.ResultUpstream
	}
	metrics.ObserveUpstream(kind.String(), result, resp.StatusCode, elapsed)

	evt := logger.Debug()
	if resp.StatusCode != http.StatusOK {
		evt = logger.Warn().Str(xglog.FieldEvent, "gateway.upstream_status")
	}
	evt.
		Str("method", method).
		Str(xglog.FieldOriginURL, target).
		Int(xglog.FieldUpstreamStatus, resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", elapsed).
		Msg("CDN responded")

	return &upstreamResponse{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// classify maps a client or body-read error onto the timeout or transport class.
func (o *origin) classify(ctx context.Context, kind asset.Kind, op, target string, start time.Time, err error) error {
	logger := xglog.FromContext(ctx)
	elapsed := time.Since(start)

	if isTimeout(ctx, err) {
		metrics.ObserveUpstream(kind.String(), metrics.ResultTimeout, 0, elapsed)
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "gateway.upstream_timeout").
			Str(xglog.FieldOriginURL, target).
			Dur("duration", elapsed).
			Msg("CDN request timed out")
		return fault.Timeout(op, err)
	}

	metrics.ObserveUpstream(kind.String(), metrics.ResultTransport, 0, elapsed)
	logger.Error().
		Err(err).
		Str(xglog.FieldEvent, "gateway.upstream_transport_failed").
		Str(xglog.FieldOriginURL, target).
		Dur("duration", elapsed).
		Msg("CDN request failed")
	return fault.Transport(op, err)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
