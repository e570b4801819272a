// Package boundary provides ports.BoundaryProvider implementations: an HTTP
// fetcher for published topology documents and an offline Natural Earth
// shapefile reader.
package boundary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/pkg/telemetry"
)

const maxDocumentSize = 64 << 20

// HTTPProvider downloads boundary documents from a URL template in which
// every {code} is replaced by the lower-case ISO alpha-2 code.
type HTTPProvider struct {
	template string
	timeout  time.Duration
	http     *fasthttp.Client
}

// NewHTTPProvider creates a new HTTPProvider.
func NewHTTPProvider(template string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPProvider{
		template: template,
		timeout:  timeout,
		http: &fasthttp.Client{
			Name:                "wayfarer",
			ReadTimeout:         timeout,
			MaxResponseBodySize: maxDocumentSize,
		},
	}
}

// URL returns the document location for code.
func (p *HTTPProvider) URL(code string) string {
	return strings.ReplaceAll(p.template, "{code}", code)
}

// Fetch downloads the raw document for code.
func (p *HTTPProvider) Fetch(ctx context.Context, code string) ([]byte, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanBoundaryFetch)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrCountry, code))

	if err := ctx.Err(); err != nil {
		return nil, &domain.BoundaryLoadError{Code: code, Err: err}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	url := p.URL(code)
	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := p.http.DoDeadline(req, resp, deadline); err != nil {
		span.RecordError(err)
		return nil, &domain.BoundaryLoadError{Code: code, Err: fmt.Errorf("get %s: %w", url, err)}
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int(telemetry.AttrUpstream, status))
	if status != fasthttp.StatusOK {
		slog.Warn("boundary fetch failed", "country", code, "url", url, "status", status)
		return nil, &domain.BoundaryLoadError{Code: code, Status: status}
	}

	// The response buffer goes back to the pool on return.
	body := append([]byte(nil), resp.Body()...)
	return body, nil
}
