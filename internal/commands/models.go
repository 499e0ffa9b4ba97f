// internal/commands/models.go
package foundrychat

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mwiater/foundrychat/internal/appconfig"
	"github.com/mwiater/foundrychat/internal/catalog"
	"github.com/mwiater/foundrychat/internal/chat"
	"github.com/mwiater/foundrychat/internal/util"
	"github.com/spf13/cobra"
)

const maxNameWidth = 48

// modelRow is the flattened view of a descriptor used for list output.
type modelRow struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"displayName" yaml:"displayName"`
	Category    string `json:"category" yaml:"category"`
	Size        string `json:"size" yaml:"size"`
	Parameters  string `json:"parameters" yaml:"parameters"`
	Cached      bool   `json:"cached" yaml:"cached"`
	Favorite    bool   `json:"favorite" yaml:"favorite"`
}

func toRows(models []catalog.ModelDescriptor) []modelRow {
	rows := make([]modelRow, 0, len(models))
	for _, m := range models {
		rows = append(rows, modelRow{
			Name:        m.Name,
			DisplayName: m.DisplayName,
			Category:    m.Category,
			Size:        catalog.FormatSize(m.FileSize),
			Parameters:  m.ParameterSize,
			Cached:      m.IsCached,
			Favorite:    m.IsFavorite,
		})
	}
	return rows
}

// modelsCmd groups the commands that talk to the service's model endpoints.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Browse, download, and delete models",
	Long:  `The 'models' command groups subcommands that query the service catalog and manage downloaded models.`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog models with cached and favorite markers",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		res, info := svc.catalog.Load(cmd.Context(), svc.loadOptions())
		if info != nil {
			return info
		}

		models := res.Available
		if onlyCached, _ := cmd.Flags().GetBool("cached"); onlyCached {
			models = res.Cached
		}
		if onlyFavorites, _ := cmd.Flags().GetBool("favorites"); onlyFavorites {
			models = res.Favorites
		}
		if category, _ := cmd.Flags().GetString("category"); category != "" {
			if !knownCategory(category) {
				return fmt.Errorf("unknown category %q (want one of: %s)", category, strings.Join(catalog.Categories, ", "))
			}
			models = catalog.FilterCategory(models, category)
		}

		rows := toRows(models)
		if ok, err := writeStructured(cmd, rows); ok {
			return err
		}

		out := cmd.OutOrStdout()
		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			name := util.TruncateRunes(r.Name, maxNameWidth)
			if r.Favorite {
				name = "★ " + name
			}
			table = append(table, []string{name, r.Category, r.Size, r.Parameters, yesNo(r.Cached)})
		}
		renderTable(out, []string{"MODEL", "CATEGORY", "SIZE", "PARAMS", "CACHED"}, table)
		fmt.Fprintln(out, mutedText(res.Status))
		return nil
	},
}

var modelsActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "List the models currently loaded by the service",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		active, err := svc.catalog.ActiveModels(cmd.Context()).Unwrap()
		if err != nil {
			return err
		}
		if ok, err := writeStructured(cmd, active); ok {
			return err
		}
		rows := make([][]string, 0, len(active))
		for _, m := range active {
			rows = append(rows, []string{m.ID, strconv.Itoa(m.MaxInputTokens), strconv.Itoa(m.MaxOutputTokens), m.OwnedBy})
		}
		renderTable(cmd.OutOrStdout(), []string{"ID", "MAX INPUT", "MAX OUTPUT", "OWNER"}, rows)
		return nil
	},
}

var modelsInfoCmd = &cobra.Command{
	Use:   "info <id>",
	Short: "Show the token limits of a loaded model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		active, err := svc.catalog.ActiveModels(cmd.Context()).Unwrap()
		if err != nil {
			return err
		}
		for _, m := range active {
			if m.ID == args[0] {
				if ok, err := writeStructured(cmd, m); ok {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), chat.ModelInfo(m))
				return nil
			}
		}
		return fmt.Errorf("model %q is not loaded", args[0])
	},
}

var modelsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the catalog descriptor of a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		d, err := findDescriptor(cmd, svc, args[0])
		if err != nil {
			return err
		}
		if ok, err := writeStructured(cmd, d); ok {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Name:          %s\n", accentText(d.Name))
		fmt.Fprintf(out, "Display name:  %s\n", d.DisplayName)
		fmt.Fprintf(out, "Category:      %s\n", d.Category)
		fmt.Fprintf(out, "Publisher:     %s\n", d.Publisher)
		fmt.Fprintf(out, "Task:          %s\n", d.Task)
		fmt.Fprintf(out, "Runtime:       %s\n", d.Runtime)
		fmt.Fprintf(out, "Architecture:  %s\n", d.Architecture)
		fmt.Fprintf(out, "Size:          %s\n", catalog.FormatSize(d.FileSize))
		fmt.Fprintf(out, "Parameters:    %s\n", d.ParameterSize)
		fmt.Fprintf(out, "Version:       %s\n", d.Version)
		fmt.Fprintf(out, "Cached:        %s\n", yesNo(d.IsCached))
		fmt.Fprintf(out, "Favorite:      %s\n", yesNo(d.IsFavorite))
		dump(out, "descriptor", d)
		return nil
	},
}

var modelsDownloadCmd = &cobra.Command{
	Use:   "download <name>",
	Short: "Download a catalog model through the service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		d, err := findDescriptor(cmd, svc, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if d.IsCached {
			fmt.Fprintf(out, "%s is already downloaded\n", d.Name)
			return nil
		}

		fmt.Fprintf(out, "Downloading %s (%s)\n", accentText(d.Name), catalog.FormatSize(d.FileSize))
		res := svc.catalog.Download(cmd.Context(), d, func(fraction float64) {
			fmt.Fprintf(out, "\r  %5.1f%%", fraction*100)
		})
		fmt.Fprintln(out)
		if _, err := res.Unwrap(); err != nil {
			fmt.Fprintln(out, failedText("download failed"))
			return err
		}
		svc.cache.Remove(d.Name)
		fmt.Fprintln(out, successText("download complete"))
		return nil
	},
}

var modelsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a downloaded model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(GetConfig())
		if err != nil {
			return err
		}
		if _, err := svc.catalog.Delete(cmd.Context(), args[0]).Unwrap(); err != nil {
			return err
		}
		svc.cache.Remove(args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successText("deleted"), args[0])
		return nil
	},
}

var modelsFavoriteCmd = &cobra.Command{
	Use:   "favorite <name>",
	Short: "Add a model to the favorites, or remove it if it is one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		svc, err := newServices(cfg)
		if err != nil {
			return err
		}
		res, info := svc.catalog.Load(cmd.Context(), svc.loadOptions())
		if info != nil {
			return info
		}
		d, err := findDescriptor(cmd, svc, args[0])
		if err != nil {
			return err
		}

		favorites := catalog.ToggleFavorite(res.Available, res.Favorites, d.Name)
		names := make([]string, 0, len(favorites))
		for _, f := range favorites {
			names = append(names, f.Name)
		}
		d.IsFavorite = slices.Contains(names, d.Name)
		svc.cache.Put(d)
		cfg.Favorites = names

		if save, _ := cmd.Flags().GetBool("save"); save {
			if err := appconfig.SaveFavorites(cfg.ConfigPath, names); err != nil {
				return err
			}
		}

		if ok, err := writeStructured(cmd, struct {
			Name      string   `json:"name" yaml:"name"`
			Favorite  bool     `json:"favorite" yaml:"favorite"`
			Favorites []string `json:"favorites" yaml:"favorites"`
		}{d.Name, d.IsFavorite, names}); ok {
			return err
		}
		out := cmd.OutOrStdout()
		if d.IsFavorite {
			fmt.Fprintf(out, "%s %s\n", successText("added to favorites:"), d.Name)
		} else {
			fmt.Fprintf(out, "%s %s\n", mutedText("removed from favorites:"), d.Name)
		}
		fmt.Fprintf(out, "Favorites: %s\n", strings.Join(names, ", "))
		return nil
	},
}

func knownCategory(name string) bool {
	if strings.EqualFold(name, "all") {
		return true
	}
	for _, c := range catalog.Categories {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// findDescriptor loads the merged catalog and returns the named descriptor
// from the descriptor cache.
func findDescriptor(cmd *cobra.Command, svc *services, name string) (catalog.ModelDescriptor, error) {
	if d, ok := svc.cache.Get(name); ok {
		return d, nil
	}
	if _, info := svc.catalog.Load(cmd.Context(), svc.loadOptions()); info != nil {
		return catalog.ModelDescriptor{}, info
	}
	d, ok := svc.cache.Get(name)
	if !ok {
		return catalog.ModelDescriptor{}, fmt.Errorf("model %q is not in the catalog", name)
	}
	return d, nil
}

func init() {
	modelsListCmd.Flags().String("category", "", "only show models in this category")
	modelsListCmd.Flags().Bool("cached", false, "only show downloaded models")
	modelsListCmd.Flags().Bool("favorites", false, "only show favorite models")
	modelsFavoriteCmd.Flags().Bool("save", false, "write the updated favorites to the config file")

	modelsCmd.AddCommand(modelsListCmd, modelsActiveCmd, modelsInfoCmd, modelsShowCmd, modelsDownloadCmd, modelsDeleteCmd, modelsFavoriteCmd)
	rootCmd.AddCommand(modelsCmd)
}
