// internal/catalog/service.go
// Package catalog talks to the model-management endpoints of the Foundry Local
// service: the full catalog, the loaded models, downloads, deletes, and status.
package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/mwiater/foundrychat/internal/logging"
	"github.com/mwiater/foundrychat/internal/transport"
)

const (
	catalogPath  = "foundry/list"
	modelsPath   = "v1/models"
	downloadPath = "openai/download"
	statusPath   = "openai/status"
)

var percentPattern = regexp.MustCompile(`(\d+)%`)

// ProgressFunc receives download progress as a fraction between 0 and 1.
type ProgressFunc func(fraction float64)

// Service wraps the transport client with catalog operations.
type Service struct {
	client   *transport.Client
	cacheDir string
}

// NewService builds a Service. cacheDir is sent as the download target directory.
func NewService(client *transport.Client, cacheDir string) *Service {
	return &Service{client: client, cacheDir: cacheDir}
}

// Catalog returns every model the service can download.
func (s *Service) Catalog(ctx context.Context) transport.Result[[]ModelDescriptor] {
	res := transport.Get[[]ModelDescriptor](ctx, s.client, catalogPath)
	if res.IsSuccess() && len(res.Value()) == 0 {
		logging.LogEvent("catalog: no models found, returning empty list")
		return transport.Ok([]ModelDescriptor{})
	}
	return res
}

// ActiveModels returns the models the service currently has loaded.
func (s *Service) ActiveModels(ctx context.Context) transport.Result[[]ActiveModel] {
	res := transport.Get[modelsResponse](ctx, s.client, modelsPath)
	if !res.IsSuccess() {
		return transport.FailWith[[]ActiveModel](res)
	}
	data := res.Value().Data
	if data == nil {
		data = []ActiveModel{}
	}
	return transport.Ok(data)
}

// Status returns the service status document.
func (s *Service) Status(ctx context.Context) transport.Result[ServiceStatus] {
	return transport.Get[ServiceStatus](ctx, s.client, statusPath)
}

// Delete removes a downloaded model. The id is escaped because it may contain ':'.
func (s *Service) Delete(ctx context.Context, id string) transport.Result[bool] {
	return s.client.Delete(ctx, modelsPath+"/"+escapeID(id))
}

// Download asks the service to fetch d and follows its progress stream until
// the service closes it. The result is true once the service accepted the
// request; a failure while draining the stream is still reported.
func (s *Service) Download(ctx context.Context, d ModelDescriptor, onProgress ProgressFunc) transport.Result[bool] {
	envelope := NewEnvelope(d, EnvelopeOptions{CustomDirPath: s.cacheDir})
	if err := envelope.Validate(); err != nil {
		return transport.Fail[bool](transport.NewError(transport.KindUnexpected, "Invalid download request", err.Error()))
	}

	resp, info := s.client.OpenStream(ctx, http.MethodPost, downloadPath, envelope)
	if info != nil {
		logging.LogEvent("download %s failed: %v", d.Name, info)
		return transport.Fail[bool](info)
	}
	defer resp.Body.Close()
	logging.LogEvent("download %s started", d.Name)

	err := transport.ReadLines(ctx, resp.Body, func(line string) error {
		if strings.TrimSpace(line) == "" {
			return nil
		}
		logging.LogDebug("download progress raw: %s", line)
		if fraction, ok := ParseProgress(line); ok && onProgress != nil {
			onProgress(fraction)
		}
		return nil
	})
	if err != nil {
		return transport.Fail[bool](transport.AsStreamError(err))
	}
	logging.LogEvent("download %s completed", d.Name)
	return transport.Ok(true)
}

// ParseProgress reads a progress fraction from one line of download output.
// It accepts "NN%" anywhere in the line or a JSON object with a numeric
// "percentage" or "progress" field.
func ParseProgress(line string) (float64, bool) {
	if strings.Contains(line, "%") {
		m := percentPattern.FindStringSubmatch(line)
		if m == nil {
			return 0, false
		}
		p, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		return p / 100, true
	}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return 0, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return 0, false
	}
	raw, ok := fields["percentage"]
	if !ok {
		raw, ok = fields["progress"]
	}
	if !ok {
		return 0, false
	}
	var p float64
	if err := json.Unmarshal(raw, &p); err != nil {
		return 0, false
	}
	return p / 100, true
}

// escapeID percent-encodes every reserved character, including ':'.
func escapeID(id string) string {
	return strings.ReplaceAll(url.QueryEscape(id), "+", "%20")
}
