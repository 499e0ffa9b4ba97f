// internal/catalog/favorites.go
package catalog

import "strings"

// MarkFavorites flags, for each id, the first descriptor whose name contains
// it (case-insensitive), and returns the flagged descriptors in id order.
func MarkFavorites(models []ModelDescriptor, ids []string) []ModelDescriptor {
	var favorites []ModelDescriptor
	for _, id := range ids {
		needle := strings.ToLower(id)
		for i := range models {
			if strings.Contains(strings.ToLower(models[i].Name), needle) {
				models[i].IsFavorite = true
				favorites = append(favorites, models[i])
				break
			}
		}
	}
	return favorites
}

// ToggleFavorite flips the favorite flag of the named descriptor and returns
// the updated favorites list.
func ToggleFavorite(models []ModelDescriptor, favorites []ModelDescriptor, name string) []ModelDescriptor {
	for i := range models {
		if models[i].Name != name {
			continue
		}
		models[i].IsFavorite = !models[i].IsFavorite
		if models[i].IsFavorite {
			for _, f := range favorites {
				if f.Name == name {
					return favorites
				}
			}
			return append(favorites, models[i])
		}
		out := favorites[:0:0]
		for _, f := range favorites {
			if f.Name != name {
				out = append(out, f)
			}
		}
		return out
	}
	return favorites
}
