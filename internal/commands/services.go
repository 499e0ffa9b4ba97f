// internal/commands/services.go
package foundrychat

import (
	"fmt"

	"github.com/mwiater/foundrychat/internal/appconfig"
	"github.com/mwiater/foundrychat/internal/catalog"
	"github.com/mwiater/foundrychat/internal/chat"
	"github.com/mwiater/foundrychat/internal/cliexec"
	"github.com/mwiater/foundrychat/internal/discovery"
	"github.com/mwiater/foundrychat/internal/inference"
	"github.com/mwiater/foundrychat/internal/markdown"
	"github.com/mwiater/foundrychat/internal/transport"
)

// services bundles the clients a command needs, built from one config.
type services struct {
	cfg       *appconfig.Config
	cli       *cliexec.Executor
	transport *transport.Client
	catalog   *catalog.Service
	inference *inference.Client
	cache     *catalog.DescriptorCache
}

// descriptorCache outlives individual services so descriptors loaded earlier
// in the process are reused until they expire.
var descriptorCache = catalog.NewDescriptorCache()

// newServices is a variable so tests can swap in canned clients.
var newServices = func(cfg *appconfig.Config) (*services, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is not loaded")
	}
	exec, err := cliexec.New(cfg.ServiceBinary)
	if err != nil {
		return nil, err
	}

	var resolver transport.BaseURLResolver
	if cfg.BaseURL != "" {
		resolver = transport.StaticBaseURL(cfg.BaseURL)
	} else {
		resolver = discovery.NewResolver(exec, cfg.DefaultBaseURL)
	}
	tc := transport.New(cfg, resolver)

	return &services{
		cfg:       cfg,
		cli:       exec,
		transport: tc,
		catalog:   catalog.NewService(tc, cfg.ModelCacheDir()),
		inference: inference.New(tc),
		cache:     descriptorCache,
	}, nil
}

func (s *services) loadOptions() catalog.LoadOptions {
	return catalog.LoadOptions{
		Reconciler: catalog.ReconcilerFor(s.cfg.Reconcile),
		Favorites:  s.cfg.Favorites,
		Cache:      s.cache,
	}
}

// newOrchestrator builds a chat orchestrator honouring the markdown and
// streaming settings.
func (s *services) newOrchestrator() *chat.Orchestrator {
	opts := chat.Options{
		Stream:   s.cfg.Stream,
		Sampling: s.cfg.Sampling,
	}
	if s.cfg.MarkdownEnabled() {
		opts.Format = markdown.Normalize
	}
	return chat.New(s.inference, opts)
}
