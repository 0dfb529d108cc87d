// Package collytransport implements the document download transport using
// the Colly collector.
package collytransport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Transport performs one-shot document GETs through Colly. Each call clones
// the base collector so visit-dedup state never carries over between
// requests.
type Transport struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Transport.
func New(cfg Config) *Transport {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())
	return &Transport{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Get fetches url and returns the response status and body. A non-nil error
// means the transport itself failed; HTTP error statuses come back as
// (status, body, nil) and are the caller's to judge.
func (t *Transport) Get(ctx context.Context, url string, timeout time.Duration, headers http.Header) (int, []byte, error) {
	collector := t.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	if t.cfg.UserAgent != "" {
		collector.UserAgent = t.cfg.UserAgent
	}
	if timeout <= 0 {
		timeout = t.cfg.Timeout
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	var (
		status int
		body   []byte
		cbErr  error
	)
	collector.OnRequest(func(r *colly.Request) {
		for key, values := range headers {
			for _, v := range values {
				r.Headers.Add(key, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			// HTTP-level failure: report the status, not an error.
			status = r.StatusCode
			body = append([]byte(nil), r.Body...)
			return
		}
		cbErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return 0, nil, fmt.Errorf("document fetch canceled: %w", ctx.Err())
	case err := <-done:
		if cbErr != nil {
			return 0, nil, fmt.Errorf("document fetch failed: %w", cbErr)
		}
		if err != nil && status == 0 {
			return 0, nil, fmt.Errorf("document visit failed: %w", err)
		}
		return status, body, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
