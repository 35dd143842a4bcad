package assembly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"slopreel/internal/assets"
	"slopreel/internal/logging"
	"slopreel/internal/providers/providerhttp"
	"slopreel/internal/services"
)

const defaultTimeout = 300 * time.Second

// Service error codes returned in the detail object.
const (
	CodeInvalidMetadata = "INVALID_METADATA"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeTimeout         = "TIMEOUT"
	CodeMissingFiles    = "MISSING_FILES"
	CodeFFmpeg          = "FFMPEG_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
)

// ServiceError is a structured failure reported by the assembly service.
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ServiceError) Error() string {
	code := e.Code
	if code == "" {
		code = "HTTP_" + strconv.Itoa(e.StatusCode)
	}
	return fmt.Sprintf("assembly service %s: %s", code, e.Message)
}

// Unwrap maps the service code onto the shared error markers.
func (e *ServiceError) Unwrap() error {
	switch e.Code {
	case CodeInvalidMetadata, CodeInvalidRequest, CodeMissingFiles:
		return services.ErrValidation
	case CodeTimeout:
		return services.ErrTimeout
	default:
		return services.ErrProvider
	}
}

// Config configures the client.
type Config struct {
	URL     string
	Timeout time.Duration
}

// Client talks to the assembly service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) { cl.logger = logging.NewComponentLogger(logger, "assembly") }
}

// NewClient builds a client.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		http:    providerhttp.NewHTTPClient(cfg.Timeout, defaultTimeout),
		logger:  logging.NewComponentLogger(nil, "assembly"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Result describes a finished render.
type Result struct {
	Bytes           int64
	DurationSeconds float64
	Filename        string
}

type metadata struct {
	Scenes     []sceneMeta `json:"scenes"`
	Resolution Resolution  `json:"resolution"`
	FrameRate  int         `json:"frameRate"`
}

type sceneMeta struct {
	ImageDuration float64 `json:"imageDuration"`
}

// Assemble uploads the plan and streams the resulting MP4 into out.
func (c *Client) Assemble(ctx context.Context, plan Plan, out io.Writer) (Result, error) {
	if len(plan.Segments) == 0 {
		return Result{}, ErrNoUsableScenes
	}
	body, contentType, err := encodePlan(plan)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "assembly", "encode", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/assemble-video", bytes.NewReader(body))
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "assembly", "build request", "", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "video/mp4")

	c.logger.Info("assembly request",
		logging.String(logging.FieldEventType, "assembly_started"),
		logging.Int("scenes", len(plan.Segments)),
		logging.Int("dropped", len(plan.Dropped)),
		logging.Int("upload_bytes", len(body)),
		logging.Float64("planned_seconds", plan.Duration()),
	)
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, services.Wrap(services.ErrProvider, "assembly", "request", "service unreachable at "+c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return Result{}, decodeServiceError(resp.StatusCode, raw)
	}

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return Result{}, services.Wrap(services.ErrProvider, "assembly", "download", "", err)
	}
	if n == 0 {
		return Result{}, services.Wrap(services.ErrProvider, "assembly", "download", "service returned an empty video", nil)
	}
	result := Result{Bytes: n, Filename: filenameFrom(resp.Header.Get("Content-Disposition"))}
	if raw := resp.Header.Get("X-Video-Duration"); raw != "" {
		if d, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			result.DurationSeconds = d
		}
	}
	c.logger.Info("assembly finished",
		logging.String(logging.FieldEventType, "assembly_finished"),
		logging.Int64("video_bytes", n),
		logging.Float64("video_seconds", result.DurationSeconds),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// HealthCheck reports whether the service answers at all.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrProvider, "assembly", "health", "service unreachable at "+c.baseURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 500 {
		return &ServiceError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	return nil
}

func encodePlan(plan Plan) ([]byte, string, error) {
	meta := metadata{Resolution: plan.Resolution, FrameRate: plan.FrameRate}
	for _, s := range plan.Segments {
		meta.Scenes = append(meta.Scenes, sceneMeta{ImageDuration: s.ImageDuration})
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("metadata", string(metaJSON)); err != nil {
		return nil, "", err
	}
	for i, s := range plan.Segments {
		if err := writeFile(w, "images", fmt.Sprintf("scene_%03d%s", i, assets.ExtensionOr(s.Image.MimeType, ".jpg")), s.Image.MimeType, s.Image.Data); err != nil {
			return nil, "", err
		}
	}
	for i, s := range plan.Segments {
		if err := writeFile(w, "audio", fmt.Sprintf("scene_%03d%s", i, assets.ExtensionOr(s.Audio.MimeType, ".mp3")), s.Audio.MimeType, s.Audio.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field, filename, mimeType string, data []byte) error {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

func decodeServiceError(status int, raw []byte) error {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	se := &ServiceError{StatusCode: status}
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload.Detail) > 0 {
		var detail struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		var text string
		switch {
		case json.Unmarshal(payload.Detail, &detail) == nil && detail.Error != "":
			se.Code, se.Message = detail.Error, detail.Message
		case json.Unmarshal(payload.Detail, &text) == nil:
			se.Message = text
		}
	}
	if se.Message == "" {
		se.Message = providerhttp.Snippet(string(raw), 200)
	}
	if se.Code == "" && status == http.StatusGatewayTimeout {
		se.Code = CodeTimeout
	}
	return se
}

func filenameFrom(disposition string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// IsServiceError reports whether err carries a ServiceError with code.
func IsServiceError(err error, code string) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Code == code
}
