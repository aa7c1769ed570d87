package bnhub

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	id "filer/pkg/domain"
	dErrors "filer/pkg/domain-errors"
	"filer/pkg/platform/circuit"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBytes = 1 << 20

// ErrCircuitOpen is returned without calling the registry while the breaker
// is open.
var ErrCircuitOpen = errors.New("bn hub circuit open")

// Response is what the registry returned for one request.
type Response struct {
	StatusCode int
	Root       string
	Body       []byte
}

// Acknowledged reports whether the registry accepted the request.
func (r *Response) Acknowledged() bool {
	return r != nil && r.Root == AcknowledgementRoot
}

// Config holds client settings.
type Config struct {
	URL         string
	SubmitterID string
	Timeout     time.Duration
}

// Client posts request documents to the BN Hub.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithBreaker guards calls with a circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client. The default transport is traced with otelhttp.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHeader builds the request header for an attempt.
func (c *Client) NewHeader(filingID id.FilingID, retry int, partnerNote string) Header {
	return Header{
		RequestMode:   RequestModeAdd,
		SubmitterID:   c.cfg.SubmitterID,
		TransactionID: TransactionID(filingID, retry),
		PartnerNote:   partnerNote,
	}
}

// Send posts the request. Transport failures, timeouts and an open circuit
// are KindRetryable. A response that is not an acknowledgement is returned
// without error; the caller decides what it means.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return nil, dErrors.Wrap(ErrCircuitOpen, dErrors.KindRetryable, req.Root)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.KindFatal, "build bn hub request")
	}
	httpReq.Header.Set("Content-Type", "application/xml")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.recordFailure()
		return nil, dErrors.Wrap(err, dErrors.KindRetryable, "send "+req.Root)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.recordFailure()
		return nil, dErrors.Wrap(err, dErrors.KindRetryable, "read bn hub response")
	}

	out := &Response{StatusCode: resp.StatusCode, Root: RootElement(body), Body: body}
	if resp.StatusCode >= http.StatusInternalServerError {
		c.recordFailure()
	} else {
		c.recordSuccess()
	}
	c.logger.DebugContext(ctx, "bn hub response",
		"request", req.Root,
		"status", resp.StatusCode,
		"root", out.Root,
		"duration", time.Since(start),
	)
	return out, nil
}

func (c *Client) recordFailure() {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.Warn("bn hub circuit opened", "breaker", c.breaker.Name())
	}
}

func (c *Client) recordSuccess() {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.Info("bn hub circuit closed", "breaker", c.breaker.Name())
	}
}

// RootElement returns the local name of the first element in an XML
// document, or "" when the body is not XML.
func RootElement(body []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local
		}
	}
}

func (r *Response) String() string {
	if r == nil {
		return ""
	}
	if len(r.Body) == 0 {
		return fmt.Sprintf("HTTP %d", r.StatusCode)
	}
	return string(r.Body)
}
