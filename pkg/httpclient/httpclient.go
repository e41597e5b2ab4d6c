package httpclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/valyala/fasthttp"
)

const DefaultTimeout = 10 * time.Second

type Config struct {
	// Enable debug mode
	Debug bool

	// Timeout bounds every request that has no earlier context deadline.
	Timeout time.Duration

	// Default headers
	Headers map[string]string
}

type Client struct {
	baseURL *url.URL
	client  *fasthttp.Client
	Config
}

func New(baseURL string, config ...Config) (*Client, error) {
	parsedBaseURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "can't parse base url")
	}
	if parsedBaseURL.Scheme == "" || parsedBaseURL.Host == "" {
		return nil, errors.Wrapf(errs.InvalidArgument, "base url %q must be absolute", baseURL)
	}
	var cf Config
	if len(config) > 0 {
		cf = config[0]
	}
	if len(cf.Headers) == 0 {
		cf.Headers = make(map[string]string)
	}
	cf.Timeout = utils.Default(cf.Timeout, DefaultTimeout)
	return &Client{
		baseURL: parsedBaseURL,
		client: &fasthttp.Client{
			Name:                "batchsale",
			MaxIdleConnDuration: 30 * time.Second,
		},
		Config: cf,
	}, nil
}

type RequestOptions struct {
	path   string
	method string
	Body   []byte
	Query  url.Values
	Header map[string]string
}

type HttpResponse struct {
	URL string
	fasthttp.Response
}

// IsSuccess reports a 2xx status.
func (r *HttpResponse) IsSuccess() bool {
	code := r.StatusCode()
	return code >= 200 && code < 300
}

func (r *HttpResponse) UnmarshalBody(out any) error {
	body, err := r.BodyUncompressed()
	if err != nil {
		return errors.Wrapf(err, "can't uncompress body from %v", r.URL)
	}
	contentType := strings.ToLower(string(r.Header.ContentType()))
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		if err := json.Unmarshal(body, out); err != nil {
			return errors.Wrapf(err, "can't unmarshal json body from %s, %q", r.URL, string(body))
		}
		return nil
	case strings.HasPrefix(contentType, "text/plain"):
		return errors.Errorf("can't unmarshal plain text %q", string(body))
	default:
		return errors.Errorf("unsupported content type: %s, contents: %v", contentType, string(body))
	}
}

// request sends the request and waits for the response or for ctx. A
// cancelled request is abandoned: its connection finishes in the background.
func (h *Client) request(ctx context.Context, reqOptions RequestOptions) (*HttpResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	start := time.Now()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	release := func() {
		fasthttp.ReleaseResponse(resp)
		fasthttp.ReleaseRequest(req)
	}

	req.Header.SetMethod(reqOptions.method)
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range reqOptions.Header {
		req.Header.Set(k, v)
	}

	parsedUrl := h.BaseURL()
	parsedUrl.Path = path.Join(parsedUrl.Path, reqOptions.path)
	if len(reqOptions.Query) > 0 {
		parsedUrl.RawQuery = reqOptions.Query.Encode()
	}
	url := parsedUrl.String()
	req.SetRequestURI(url)
	if reqOptions.Body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(reqOptions.Body)
	}

	deadline := start.Add(h.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	done := make(chan error, 1)
	go func() {
		done <- h.client.DoDeadline(req, resp, deadline)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		go func() {
			<-done
			release()
		}()
		return nil, errors.Wrapf(ctx.Err(), "url: %s", url)
	}
	defer release()

	if h.Debug {
		logger.DebugContext(ctx, "Finished make request",
			slog.String("package", "httpclient"),
			slog.String("method", reqOptions.method),
			slog.String("url", url),
			slog.Duration("duration", time.Since(start)),
			slog.Int("status_code", resp.StatusCode()),
			slog.Int("resp_content_length", len(resp.Body())),
		)
	}

	if err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, errors.Wrapf(errs.Timeout, "url: %s", url)
		}
		return nil, errors.Wrapf(err, "url: %s", url)
	}

	httpResponse := HttpResponse{
		URL: url,
	}
	resp.CopyTo(&httpResponse.Response)
	return &httpResponse, nil
}

// BaseURL returns the cloned base URL of the client.
func (h *Client) BaseURL() *url.URL {
	u := *h.baseURL
	return &u
}

func (h *Client) Get(ctx context.Context, path string, reqOptions RequestOptions) (*HttpResponse, error) {
	reqOptions.path = path
	reqOptions.method = fasthttp.MethodGet
	return h.request(ctx, reqOptions)
}

func (h *Client) Post(ctx context.Context, path string, reqOptions RequestOptions) (*HttpResponse, error) {
	reqOptions.path = path
	reqOptions.method = fasthttp.MethodPost
	return h.request(ctx, reqOptions)
}
