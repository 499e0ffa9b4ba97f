// internal/catalog/load.go
package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/mwiater/foundrychat/internal/transport"
	"golang.org/x/sync/errgroup"
)

// LoadResult is the merged view used by the model browser.
type LoadResult struct {
	Available []ModelDescriptor
	Cached    []ModelDescriptor
	Favorites []ModelDescriptor
	Status    string
}

// LoadOptions control how the merged view is built.
type LoadOptions struct {
	Reconciler Reconciler
	Favorites  []string
	Cache      *DescriptorCache
}

// Load fetches the catalog and the active models concurrently, then marks
// cached models, categorizes, orders cached models first, removes duplicate
// names, and flags favorites. A catalog failure is reported ahead of an
// active-model failure.
func (s *Service) Load(ctx context.Context, opts LoadOptions) (LoadResult, *transport.ErrorInfo) {
	var (
		catalogRes transport.Result[[]ModelDescriptor]
		activeRes  transport.Result[[]ActiveModel]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		catalogRes = s.Catalog(gctx)
		return nil
	})
	g.Go(func() error {
		activeRes = s.ActiveModels(gctx)
		return nil
	})
	_ = g.Wait()

	if !catalogRes.IsSuccess() {
		info := catalogRes.Err()
		return LoadResult{Status: "Error loading catalog: " + info.Message}, info
	}
	if !activeRes.IsSuccess() {
		info := activeRes.Err()
		return LoadResult{Status: "Error loading active models: " + info.Message}, info
	}

	result := Merge(catalogRes.Value(), activeRes.Value(), opts)
	if opts.Cache != nil {
		for _, m := range result.Available {
			opts.Cache.Put(m)
		}
	}
	return result, nil
}

// Merge builds a LoadResult from already fetched lists.
func Merge(catalog []ModelDescriptor, active []ActiveModel, opts LoadOptions) LoadResult {
	reconciler := opts.Reconciler
	if reconciler == nil {
		reconciler = ExactID{}
	}

	models := append([]ModelDescriptor(nil), catalog...)
	MarkCached(models, active, reconciler)
	for i := range models {
		models[i].Category = Categorize(models[i])
	}
	sort.SliceStable(models, func(i, j int) bool {
		return models[i].IsCached && !models[j].IsCached
	})
	models = dedupeByName(models)

	favorites := MarkFavorites(models, opts.Favorites)

	var cached []ModelDescriptor
	for _, m := range models {
		if m.IsCached {
			cached = append(cached, m)
		}
	}

	return LoadResult{
		Available: models,
		Cached:    cached,
		Favorites: favorites,
		Status:    fmt.Sprintf("Found %d available models, %d cached", len(models), len(cached)),
	}
}

func dedupeByName(models []ModelDescriptor) []ModelDescriptor {
	seen := make(map[string]struct{}, len(models))
	out := models[:0]
	for _, m := range models {
		if _, ok := seen[m.Name]; ok {
			continue
		}
		seen[m.Name] = struct{}{}
		out = append(out, m)
	}
	return out
}
