package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/okian/tailor/internal/domain/model"
)

const sessionHeader = "X-Session-ID"

// client wraps a resty client bound to one server.
type client struct {
	http *resty.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// call sends body to path and decodes a success reply into out.
func (c *client) call(ctx context.Context, method, path, session string, body, out any) error {
	var fail failureReply
	req := c.http.R().SetContext(ctx).SetError(&fail)
	if out != nil {
		req.SetResult(out)
	}
	if body != nil {
		req.SetBody(body)
	}
	if session != "" {
		req.SetHeader(sessionHeader, session)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: %s %s: %d %s: %s", ErrProbe, method, path, resp.StatusCode(), fail.Code, fail.Message)
	}
	return nil
}

func (c *client) health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: health check status %d", ErrProbe, resp.StatusCode())
	}
	return nil
}

func (c *client) openSession(ctx context.Context) (string, error) {
	var out sessionReply
	if err := c.call(ctx, http.MethodPost, "/sessions", "", nil, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *client) closeSession(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id), "", nil, nil)
}

func (c *client) calibrate(ctx context.Context, session, image string) (calibrateReply, error) {
	var out calibrateReply
	err := c.call(ctx, http.MethodPost, "/calibrate", session, frameBody{Image: image}, &out)
	return out, err
}

func (c *client) measure(ctx context.Context, session, image string) (measureReply, error) {
	var out measureReply
	err := c.call(ctx, http.MethodPost, "/measure", session, frameBody{Image: image}, &out)
	return out, err
}

func (c *client) save(ctx context.Context, session, user, requestID string) (saveReply, error) {
	var out saveReply
	err := c.call(ctx, http.MethodPost, "/save", session, saveBody{User: user, RequestID: requestID}, &out)
	return out, err
}

func (c *client) history(ctx context.Context, user string) ([]model.Record, error) {
	var out historyReply
	if err := c.call(ctx, http.MethodGet, "/history/"+url.PathEscape(user), "", nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}
