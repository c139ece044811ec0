package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/megayours/tma-session/session"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/megayours/tma-session/provider"

// endpoint performs the GET against one validation route.
type endpoint struct {
	provider   session.Provider
	url        string
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
	tracer     trace.Tracer
}

type response struct {
	status int
	body   []byte
}

func newEndpoint(p session.Provider, baseURL string, o options) (*endpoint, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	path := o.path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return &endpoint{
		provider:   p,
		url:        base.String() + path,
		httpClient: o.httpClient,
		timeout:    o.timeout,
		logger:     o.logger.With().Str("provider", p.String()).Logger(),
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// get sends the request with the given Authorization value. Network errors
// and timeouts come back as transient ValidationErrors; any HTTP status is
// returned to the caller to classify.
func (e *endpoint) get(ctx context.Context, authorization string) (*response, error) {
	ctx, span := e.tracer.Start(ctx, "provider.validate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("provider", e.provider.String())),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, session.Transient(e.provider, err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		e.logger.Warn().Err(err).Msg("validation request failed")
		return nil, session.Transient(e.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reading body failed")
		return nil, session.Transient(e.provider, fmt.Errorf("reading response: %w", err))
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if !isSuccess(resp.StatusCode) {
		span.SetStatus(codes.Error, "rejected")
	}
	e.logger.Debug().Int("status_code", resp.StatusCode).Msg("validation response")
	return &response{status: resp.StatusCode, body: body}, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
