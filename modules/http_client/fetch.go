package http_client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/ctyconv"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// maxResponseBody caps how much of a response is read into memory.
const maxResponseBody = 10 << 20

// request is the decoded options argument of fetch.
type request struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
	JSON    bool
	Timeout time.Duration
}

// newFetch builds fetch(url, [options]). options may set method, headers,
// body (a string is sent verbatim, anything else as JSON) and timeout (a
// duration string such as "5s"). The result is an object with status_code,
// status, headers, body and json (the decoded body, or null).
func newFetch(ctx context.Context, c *client) function.Function {
	return function.New(&function.Spec{
		Description: "Performs an HTTP request.",
		Params:      []function.Parameter{{Name: "url", Type: cty.String}},
		VarParam: &function.Parameter{
			Name:             "options",
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowDynamicType: true,
		},
		Type: function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if len(args) > 2 {
				return cty.NilVal, function.NewArgErrorf(2, "fetch takes at most one options object")
			}
			opts := ctyconv.Null
			if len(args) == 2 {
				opts = args[1]
			}
			req, err := decodeRequest(args[0].AsString(), opts, c.timeout)
			if err != nil {
				return cty.NilVal, err
			}
			return c.do(ctx, req)
		},
	})
}

func decodeRequest(url string, opts cty.Value, timeout time.Duration) (*request, error) {
	req := &request{URL: url, Timeout: timeout}

	method, err := ctyconv.AttrString(opts, "method", http.MethodGet)
	if err != nil {
		return nil, err
	}
	req.Method = strings.ToUpper(method)

	if t, err := ctyconv.AttrString(opts, "timeout", ""); err != nil {
		return nil, err
	} else if t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", t, err)
		}
		req.Timeout = d
	}

	headers := ctyconv.Attr(opts, "headers")
	for _, k := range ctyconv.Keys(headers) {
		v, err := ctyconv.AttrString(headers, k, "")
		if err != nil {
			return nil, fmt.Errorf("header %q: %w", k, err)
		}
		if req.Headers == nil {
			req.Headers = map[string]string{}
		}
		req.Headers[k] = v
	}

	body := ctyconv.Attr(opts, "body")
	switch {
	case body.IsNull():
	case body.Type() == cty.String:
		req.Body = []byte(body.AsString())
	default:
		data, err := ctyconv.ToJSON(body)
		if err != nil {
			return nil, fmt.Errorf("encoding body: %w", err)
		}
		req.Body = data
		req.JSON = true
	}
	return req, nil
}

func (c *client) do(ctx context.Context, r *request) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Making HTTP request", "method", r.Method, "url", r.URL)

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create request: %w", err)
	}
	if r.JSON {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response", "status", resp.Status)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to read response body: %w", err)
	}

	decoded := ctyconv.Null
	if isJSON(resp.Header.Get("Content-Type")) {
		if v, err := ctyconv.FromJSON(data); err == nil {
			decoded = v
		} else {
			logger.Debug("Response claimed JSON but did not decode.", "error", err)
		}
	}

	respHeaders := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		respHeaders[strings.ToLower(k)] = resp.Header.Get(k)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		"status":      cty.StringVal(resp.Status),
		"headers":     ctyconv.StringMap(respHeaders),
		"body":        cty.StringVal(string(data)),
		"json":        decoded,
	}), nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
