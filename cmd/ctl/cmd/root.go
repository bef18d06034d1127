package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jpfielding/rok4tile.go/pkg/logging"
	"github.com/spf13/cobra"
)

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	var logSink io.Closer
	cmd := &cobra.Command{
		Use:   "tilectl",
		Short: "a CLI to inspect ROK4 pyramid slabs and encode their tiles",
		Long:  "tilectl reads tiled TIFF pyramid slabs, extracts or re-encodes their tiles and synthesises no-data tiles.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logLevel, _ := cmd.Flags().GetString("log-level")
			logJSON, _ := cmd.Flags().GetBool("log-json")
			logFile, _ := cmd.Flags().GetString("log-file")

			var w io.Writer = os.Stderr
			if logFile != "" {
				fw := logging.FileWriter(logFile, 0, 0)
				w, logSink = fw, fw
			}
			// Parse log level
			var level slog.Level
			err := level.UnmarshalText([]byte(strings.ToUpper(logLevel)))
			if err != nil {
				level = slog.LevelInfo
			}
			slog.SetDefault(logging.Logger(w, logJSON, level))
			if err != nil {
				slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", logLevel, "error", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logSink == nil {
				return
			}
			slog.SetDefault(logging.Logger(os.Stderr, false, slog.LevelInfo))
			if err := logSink.Close(); err != nil {
				fmt.Fprintln(os.Stderr, "closing log file:", err)
			}
			logSink = nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd.OutOrStdout(), cmd, 0)
		},
		SilenceUsage: true,
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewInfoCmd(ctx),
		NewTileCmd(ctx),
		NewEncodeCmd(ctx),
		NewNoDataCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.Bool("log-json", false, "log as json")
	pf.String("log-file", "", "log to a rotated file instead of stderr")
	return cmd
}

func printCommandTree(w io.Writer, cmd *cobra.Command, indent int) {
	fmt.Fprintln(w, strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(w, subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitsha)
		},
	}
	return cmd
}

// writeOut writes data to path, or to stdout for "-".
func writeOut(cmd *cobra.Command, path string, data []byte) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
