// internal/discovery/discovery.go
// Package discovery resolves the Foundry Local service URL by asking the
// service's command-line tool for its status.
package discovery

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/mwiater/foundrychat/internal/logging"
)

var endpointPattern = regexp.MustCompile(`http://(127\.0\.0\.1|localhost):\d+`)

// StatusSource returns the combined output of `<binary> service status`.
// cliexec.Executor is the production implementation.
type StatusSource interface {
	ServiceStatus(ctx context.Context) (string, error)
}

// Resolver caches the discovered base URL for its lifetime.
type Resolver struct {
	source   StatusSource
	fallback string

	once sync.Once
	url  string
}

// NewResolver builds a Resolver. A nil source always yields the fallback.
func NewResolver(source StatusSource, fallback string) *Resolver {
	return &Resolver{source: source, fallback: strings.TrimRight(fallback, "/")}
}

// BaseURL asks the service on first use and returns the same answer
// afterwards. Any lookup failure returns the fallback URL.
func (r *Resolver) BaseURL(ctx context.Context) string {
	r.once.Do(func() {
		r.url = r.resolve(ctx)
	})
	return r.url
}

func (r *Resolver) resolve(ctx context.Context) string {
	if r.source == nil {
		return r.fallback
	}
	out, err := r.source.ServiceStatus(ctx)
	if err != nil {
		logging.LogEvent("discovery: service status failed, using %s: %v", r.fallback, err)
		return r.fallback
	}
	if url, ok := FindURL(out); ok {
		logging.LogEvent("discovery: found service at %s", url)
		return url
	}
	logging.LogEvent("discovery: no endpoint in service status output, using %s", r.fallback)
	return r.fallback
}

// FindURL extracts the first loopback service URL from status output.
func FindURL(output string) (string, bool) {
	match := endpointPattern.FindString(output)
	return match, match != ""
}
