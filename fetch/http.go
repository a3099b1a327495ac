package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// HTTP serves corpus resources from a remote base URL. Responses are not
// retried - a non-2xx status or transport failure surfaces as *Error.
type HTTP struct {
	base   *url.URL
	client *http.Client
	log    *zap.Logger
}

func NewHTTP(base string, client *http.Client, log *zap.Logger) (*HTTP, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if client == nil {
		client = http.DefaultClient
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("unable to parse corpus base URL: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &HTTP{base: u, client: client, log: log.Named("http")}, nil
}

func (h *HTTP) Fetch(ctx context.Context, p string) ([]byte, error) {
	if !isSafePath(p) {
		return nil, &Error{Path: p, Err: fmt.Errorf("unsafe resource path")}
	}
	ref, err := url.Parse(p)
	if err != nil {
		return nil, &Error{Path: p, Err: err}
	}

	target := h.base.ResolveReference(ref).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Path: p, Err: err}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &Error{Path: p, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Path: p, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body := io.Reader(resp.Body)

	// old exports are not always UTF-8, recode markup while we still know the
	// transport level charset hints
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "html") || strings.Contains(contentType, "xml") {
		if decoded, err := charset.NewReader(resp.Body, contentType); err == nil {
			body = decoded
		} else {
			h.log.Warn("Unable to prepare charset decoder, using raw body", zap.String("path", p), zap.Error(err))
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &Error{Path: p, Err: err}
	}
	h.log.Debug("Fetched resource", zap.String("path", p), zap.Int("bytes", len(data)))
	return data, nil
}
