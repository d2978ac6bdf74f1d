// Package cli implements the studio command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"studio/internal/app"
	"studio/internal/infra"
)

var (
	sqlitePath string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "studio",
	Short:         "Generate social media content packages",
	Long:          "Runs image, video and caption generation for a prompt and stores the resulting project.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&sqlitePath, "db", "", "SQLite database path (default: $SQLITE_PATH)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func openRuntime(ctx context.Context, errOut io.Writer) (*app.Runtime, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if sqlitePath != "" {
		cfg.SQLitePath = sqlitePath
	}
	logger := infra.NewLoggerTo(errOut, cfg.AppEnv)
	return app.Bootstrap(ctx, cfg, logger)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
