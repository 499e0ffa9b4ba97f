// internal/catalog/reconcile.go
package catalog

import "github.com/mwiater/foundrychat/internal/appconfig"

// Reconciler decides whether a catalog entry corresponds to a loaded model.
// The service has two id schemes in use, so both are kept as strategies.
type Reconciler interface {
	Matches(d ModelDescriptor, active ActiveModel) bool
}

// ExactID matches when the active model id equals the descriptor name.
type ExactID struct{}

// Matches implements Reconciler.
func (ExactID) Matches(d ModelDescriptor, active ActiveModel) bool {
	return active.ID == d.Name
}

// SuffixDisplayName strips the last two characters of the active id (a device
// suffix such as "-1") and compares the rest with the display name. Ids
// shorter than two characters never match.
type SuffixDisplayName struct{}

// Matches implements Reconciler.
func (SuffixDisplayName) Matches(d ModelDescriptor, active ActiveModel) bool {
	if len(active.ID) < 2 {
		return false
	}
	return active.ID[:len(active.ID)-2] == d.DisplayName
}

// ReconcilerFor maps a config strategy name to a Reconciler, defaulting to ExactID.
func ReconcilerFor(name string) Reconciler {
	if name == appconfig.ReconcileDisplayNameSuffix {
		return SuffixDisplayName{}
	}
	return ExactID{}
}

// MarkCached sets IsCached on every descriptor that matches an active model.
func MarkCached(models []ModelDescriptor, active []ActiveModel, r Reconciler) {
	for i := range models {
		models[i].IsCached = false
		for _, a := range active {
			if r.Matches(models[i], a) {
				models[i].IsCached = true
				break
			}
		}
	}
}
