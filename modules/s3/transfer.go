package s3

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// maxObjectSize caps downloads read into memory.
const maxObjectSize = 10 << 20

// newUpload builds s3_upload(upload_url, content, [filename]). The content
// type is derived from filename's extension.
func newUpload(ctx context.Context, c *http.Client) function.Function {
	return function.New(&function.Spec{
		Description: "Uploads content to a pre-signed URL.",
		Params: []function.Parameter{
			{Name: "upload_url", Type: cty.String},
			{Name: "content", Type: cty.String},
		},
		VarParam: &function.Parameter{Name: "filename", Type: cty.String},
		Type: function.StaticReturnType(cty.Object(map[string]cty.Type{
			"success":     cty.Bool,
			"status":      cty.String,
			"status_code": cty.Number,
		})),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if len(args) > 3 {
				return cty.NilVal, function.NewArgErrorf(3, "s3_upload takes at most one filename")
			}
			filename := ""
			if len(args) == 3 {
				filename = args[2].AsString()
			}
			return upload(ctx, c, args[0].AsString(), args[1].AsString(), filename)
		},
	})
}

// newDownload builds s3_download(download_url) and returns the object body.
func newDownload(ctx context.Context, c *http.Client) function.Function {
	return function.New(&function.Spec{
		Description: "Downloads an object from a pre-signed URL.",
		Params:      []function.Parameter{{Name: "download_url", Type: cty.String}},
		Type:        function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			body, err := download(ctx, c, args[0].AsString())
			if err != nil {
				return cty.NilVal, err
			}
			return cty.StringVal(body), nil
		},
	})
}

func contentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// upload PUTs content to a pre-signed URL.
func upload(ctx context.Context, c *http.Client, url, content, filename string) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("action", "upload")

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, strings.NewReader(content))
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create S3 upload request: %w", err)
	}
	ct := contentType(filename)
	req.Header.Set("Content-Type", ct)
	req.ContentLength = int64(len(content))

	logger.Info("Uploading object to S3", "filename", filename, "size", len(content), "contentType", ct)

	resp, err := c.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to execute S3 upload request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return cty.NilVal, fmt.Errorf("S3 upload failed with status: %s", resp.Status)
	}

	logger.Info("Successfully uploaded object", "status", resp.Status)

	return cty.ObjectVal(map[string]cty.Value{
		"success":     cty.BoolVal(true),
		"status":      cty.StringVal(resp.Status),
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
	}), nil
}

// download GETs an object from a pre-signed URL.
func download(ctx context.Context, c *http.Client, url string) (string, error) {
	logger := ctxlog.FromContext(ctx).With("action", "download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create S3 download request: %w", err)
	}
	resp, err := c.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute S3 download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("S3 download failed with status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectSize+1))
	if err != nil {
		return "", fmt.Errorf("reading S3 object: %w", err)
	}
	if len(body) > maxObjectSize {
		return "", fmt.Errorf("S3 object exceeds %d bytes", maxObjectSize)
	}

	logger.Debug("Downloaded object", "size", len(body))
	return string(body), nil
}
