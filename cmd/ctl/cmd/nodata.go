package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jpfielding/rok4tile.go/pkg/format"
	"github.com/jpfielding/rok4tile.go/pkg/nodata"
	"github.com/spf13/cobra"
)

// NewNoDataCmd writes the constant tile a server returns outside the data
func NewNoDataCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodata",
		Short: "synthesise a no-data tile",
		Long:  "Encodes a tile of a single colour in a pyramid format and prints its identifier and ETag.",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("format")
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")
			colour, _ := cmd.Flags().GetString("color")
			outPath, _ := cmd.Flags().GetString("out")

			f, err := format.Parse(name)
			if err != nil {
				return err
			}
			values, err := parseColour(colour)
			if err != nil {
				return err
			}
			src, err := nodata.New(nodata.Params{
				Format:   f,
				Width:    width,
				Height:   height,
				Channels: len(values),
				Color:    values,
			})
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := writeOut(cmd, outPath, src.Data()); err != nil {
					return err
				}
			}
			slog.DebugContext(ctx, "no-data tile built", "format", f, "type", src.Type(), "bytes", len(src.Data()))
			if outPath != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "id:   %s\netag: %s\ntype: %s\nsize: %d\n",
					src.ID(), src.ETag(), src.Type(), len(src.Data()))
			}
			return nil
		},
	}
	pf := cmd.Flags()
	pf.StringP("format", "f", "TIFF_RAW_INT8", "pyramid format name")
	pf.Int("width", 256, "tile width")
	pf.Int("height", 256, "tile height")
	pf.String("color", "255,255,255", "one value per channel, comma separated")
	pf.StringP("out", "o", "", "output file, - for stdout")
	return cmd
}

func parseColour(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad colour %q: %w", s, err)
		}
		out = append(out, v)
	}
	return out, nil
}
