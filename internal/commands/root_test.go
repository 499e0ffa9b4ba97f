// internal/commands/root_test.go
package foundrychat

import (
	"strings"
	"testing"
)

// TestRootCmd covers errors the root command reports before any subcommand
// runs, and the command tree shown in its help.
func TestRootCmd(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		args    []string
		wantErr string
		want    []string
	}{
		{
			name:    "unknown subcommand",
			args:    []string{"nonexistent"},
			wantErr: `unknown command "nonexistent" for "foundrychat"`,
		},
		{
			name:    "unsupported output format",
			args:    []string{"--output", "xml", "status"},
			wantErr: `invalid --output "xml" (want table, json or yaml)`,
		},
		{
			name:    "unknown reconcile strategy",
			config:  `{"reconcile": "fuzzy"}`,
			args:    []string{"show", "config"},
			wantErr: `invalid reconcile strategy "fuzzy"`,
		},
		{
			name: "help lists the command groups",
			args: []string{"--help"},
			want: []string{"models", "chat", "cli", "status", "--tracesEndpoint", "--output"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := tt.config
			if config == "" {
				config = "{}"
			}
			useConfig(t, config)
			t.Cleanup(func() {
				if f := rootCmd.Flags().Lookup("help"); f != nil {
					_ = f.Value.Set("false")
					f.Changed = false
				}
			})
			out, err := execute(t, tt.args...)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected an error containing %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %q", tt.wantErr, err.Error())
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("expected output to contain %q, got %q", w, out)
				}
			}
		})
	}
}
