// Package upstream calls the external automation webhooks that produce agent reports.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/observer"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

const maxResponseBytes = 4 << 20

// HTTPClient is the subset of *http.Client used here.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TriggerRequest is the body POSTed to the webhook.
type TriggerRequest struct {
	Channel     model.Channel `json:"channel"`
	TriggeredAt time.Time     `json:"triggeredAt"`
	Source      string        `json:"source"`
}

// Response is a webhook answer. Payload is nil when the body was not a JSON object.
type Response struct {
	StatusCode int
	Payload    model.RawPayload
	Raw        []byte
	ParseErr   error
}

// Client triggers webhooks with a fixed per-call timeout.
type Client struct {
	http    HTTPClient
	timeout time.Duration
}

// NewClient returns a Client using a plain http.Client. timeout bounds every call.
func NewClient(timeout time.Duration) *Client {
	return NewClientWithHTTP(&http.Client{}, timeout)
}

// NewClientWithHTTP allows a custom transport, mostly for tests.
func NewClientWithHTTP(c HTTPClient, timeout time.Duration) *Client {
	return &Client{http: c, timeout: timeout}
}

// Trigger POSTs req to webhookURL and returns the decoded answer.
//
// Transport failures and non-2xx answers wrap apperrors.ErrUpstream; an expired
// deadline wraps apperrors.ErrUpstreamTimeout. A 2xx answer whose body is not a
// JSON object is returned with ParseErr set so the caller can apply its fallback policy.
func (c *Client) Trigger(ctx context.Context, webhookURL string, req TriggerRequest) (*Response, error) {
	log := logger.FromContext(ctx).With(zap.String("webhook_url", webhookURL), zap.String("channel", string(req.Channel)))

	if webhookURL == "" {
		return nil, fmt.Errorf("%w: webhook url is empty", apperrors.ErrValidation)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode trigger request: %v", apperrors.ErrUpstream, err)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid webhook url: %v", apperrors.ErrValidation, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := utils.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if isTimeout(callCtx, err) {
			observer.ObserveUpstreamRequest("timeout", time.Since(start))
			log.Warn("Upstream webhook timed out", zap.Duration("timeout", c.timeout))
			return nil, fmt.Errorf("%w: no answer within %s", apperrors.ErrUpstreamTimeout, c.timeout)
		}
		observer.ObserveUpstreamRequest("error", time.Since(start))
		log.Warn("Upstream webhook call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	observer.ObserveUpstreamRequest(strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		if isTimeout(callCtx, err) {
			return nil, fmt.Errorf("%w: reading body: %v", apperrors.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: reading body: %v", apperrors.ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := raw
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		log.Warn("Upstream webhook returned non-2xx", zap.Int("status", resp.StatusCode), zap.ByteString("body", snippet))
		return nil, fmt.Errorf("%w: status %d", apperrors.ErrUpstream, resp.StatusCode)
	}

	out := &Response{StatusCode: resp.StatusCode, Raw: raw}
	out.Payload, out.ParseErr = model.ParsePayload(raw)
	if out.ParseErr != nil {
		log.Warn("Upstream webhook answered with an unusable body", zap.Error(out.ParseErr))
	}
	return out, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
