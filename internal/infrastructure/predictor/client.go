// Package predictor talks to the remote plant classifier.
package predictor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"github.com/herbalscanner/backend/internal/domain"
)

const (
	predictPath     = "/predict"
	fileField       = "file"
	defaultFilename = "photo.jpg"
	maxResponseSize = 1 << 20
	userAgent       = "HerbalScanner/1.0"
)

// Options tunes the client. Zero values keep the transport defaults:
// no timeout and no client-side throttling.
type Options struct {
	Timeout   time.Duration
	RateLimit float64 // requests per second
	Burst     int
	Logger    *slog.Logger
	// Fs is where images are read from; nil means the OS filesystem
	Fs afero.Fs
}

// Client handles communication with the prediction endpoint.
// Requests are never retried; a non-2xx answer is terminal.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	logger      *slog.Logger
	fs          afero.Fs
}

// NewClient creates a new prediction client
func NewClient(baseURL string, opts Options) *Client {
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: limiter,
		logger:      logger.With("component", "predictor"),
		fs:          fs,
	}
}

// Predict uploads the image at imageRef and returns the classifier's answer.
// imageRef is a local path or a file:// URI.
func (c *Client) Predict(ctx context.Context, imageRef string) (*domain.Prediction, error) {
	path, err := localPath(imageRef)
	if err != nil {
		return nil, err
	}

	body, contentType, err := buildUpload(c.fs, path)
	if err != nil {
		return nil, err
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}
	}

	endpoint := c.baseURL + predictPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("sending prediction request", "endpoint", endpoint, "image", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("prediction request failed", "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := readLimitedBody(resp.Body, maxResponseSize)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("prediction endpoint error", "status", resp.StatusCode, "body", string(respBody))
		return nil, &domain.ResponseError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	prediction, err := ParsePrediction(respBody)
	if err != nil {
		c.logger.Warn("prediction response unreadable", "error", err)
		return nil, err
	}

	c.logger.Debug("prediction received", "label", prediction.Label, "confidence", prediction.Confidence)
	return prediction, nil
}

// MimeTypeFor infers the upload content type from the file extension
func MimeTypeFor(filename string) string {
	if strings.EqualFold(filepath.Ext(filename), ".png") {
		return "image/png"
	}
	return "image/jpeg"
}

// localPath accepts a plain path or a file:// URI
func localPath(imageRef string) (string, error) {
	if imageRef == "" {
		return "", fmt.Errorf("%w: image reference is empty", domain.ErrInvalidRequest)
	}
	if strings.HasPrefix(imageRef, "file://") {
		u, err := url.Parse(imageRef)
		if err != nil {
			return "", fmt.Errorf("%w: bad image URI %q: %v", domain.ErrInvalidRequest, imageRef, err)
		}
		return u.Path, nil
	}
	return imageRef, nil
}

// buildUpload reads the image into a single-part multipart body.
// The bytes are passed through unchanged.
func buildUpload(fs afero.Fs, path string) (io.Reader, string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: open image: %v", domain.ErrInvalidRequest, err)
	}
	defer f.Close()

	filename := filepath.Base(path)
	if filename == "." || filename == string(filepath.Separator) {
		filename = defaultFilename
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fileField, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", MimeTypeFor(filename))

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("%w: read image: %v", domain.ErrInvalidRequest, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
