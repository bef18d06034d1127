package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/jpfielding/rok4tile.go/pkg/crs"
	"github.com/jpfielding/rok4tile.go/pkg/datasource"
	"github.com/jpfielding/rok4tile.go/pkg/encoder"
	"github.com/jpfielding/rok4tile.go/pkg/pyramid"
	"github.com/jpfielding/rok4tile.go/pkg/raster"
	"github.com/jpfielding/rok4tile.go/pkg/tiff"
	"github.com/spf13/cobra"
)

// NewInfoCmd prints the geometry and tile index of a slab
func NewInfoCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <slab>",
		Short: "describe a pyramid slab",
		Long:  "Prints the geometry, sample layout and compression of a tiled slab, and optionally its tile index.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := pyramid.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open slab: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "path:        %s\n", r.Path())
			fmt.Fprintf(out, "size:        %dx%d\n", r.Width(), r.Height())
			fmt.Fprintf(out, "channels:    %d %s\n", r.Channels(), r.SampleFormat())
			fmt.Fprintf(out, "compression: %s\n", r.Compression())
			fmt.Fprintf(out, "photometric: %d\n", r.Photometric())
			fmt.Fprintf(out, "tiles:       %dx%d of %dx%d (%d raw bytes)\n",
				r.TilesWide(), r.TilesHigh(), r.TileWidth(), r.TileHeight(), r.RawTileSize())

			if index, _ := cmd.Flags().GetBool("index"); !index {
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "tile\toffset\tsize\t")
			for i := 0; i < r.TilesNumber(); i++ {
				offset, size, err := r.TileIndex(i)
				if err != nil {
					slog.WarnContext(ctx, "unreadable tile index", "tile", i, "error", err)
					continue
				}
				fmt.Fprintf(tw, "%d\t%d\t%d\t\n", i, offset, size)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("index", false, "list every tile offset and size")
	return cmd
}

// NewTileCmd extracts one tile as a standalone TIFF
func NewTileCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tile <slab>",
		Short: "extract one tile as a TIFF file",
		Long:  "Wraps the stored bytes of one tile, without recompressing them, in a single strip TIFF header.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, _ := cmd.Flags().GetInt("index")
			outPath, _ := cmd.Flags().GetString("out")
			encoding, _ := cmd.Flags().GetString("encoding")

			r, err := pyramid.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open slab: %w", err)
			}
			src, err := r.TileSource(index)
			if err != nil {
				return err
			}
			var wrapped datasource.DataSource = tiff.NewHeaderSource(src, r.Compression(), r.SampleFormat(), r.Channels(), r.TileWidth(), r.TileHeight())
			if encoding != "" {
				if wrapped, err = datasource.NewEncodedSource(wrapped, encoding); err != nil {
					return err
				}
			}
			data := wrapped.Data()
			if len(data) == 0 {
				return fmt.Errorf("tile %d: %w", index, src.Err())
			}
			slog.DebugContext(ctx, "tile extracted", "tile", index, "encoding", wrapped.Encoding(), "bytes", len(data))
			return writeOut(cmd, outPath, data)
		},
	}
	pf := cmd.Flags()
	pf.IntP("index", "i", 0, "tile number, row major")
	pf.StringP("out", "o", "-", "output file, - for stdout")
	pf.String("encoding", "", "content-encoding applied to the file: gzip, deflate or zstd")
	return cmd
}

// NewEncodeCmd re-encodes a whole slab level
func NewEncodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode <slab>",
		Short: "encode a slab into another format",
		Long:  "Decodes every tile of a slab and streams the full image through an encoder.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("format")
			outPath, _ := cmd.Flags().GetString("out")
			geotiff, _ := cmd.Flags().GetBool("geotiff")
			proj4, _ := cmd.Flags().GetString("proj4")
			bbox, _ := cmd.Flags().GetString("bbox")
			quality, _ := cmd.Flags().GetInt("quality")
			level, _ := cmd.Flags().GetInt("deflate-level")

			var opts []pyramid.Option
			if proj4 != "" || bbox != "" {
				geo, err := parseGeoref(proj4, bbox)
				if err != nil {
					return err
				}
				opts = append(opts, pyramid.WithGeoref(geo))
			}
			r, err := pyramid.Open(args[0], opts...)
			if err != nil {
				return fmt.Errorf("failed to open slab: %w", err)
			}

			encOpts := []encoder.Option{encoder.WithGeoTIFF(geotiff)}
			if quality > 0 {
				encOpts = append(encOpts, encoder.WithQuality(quality))
			}
			if level > 0 {
				encOpts = append(encOpts, encoder.WithDeflateLevel(level))
			}
			enc, err := encoder.ByName(r, name, encOpts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}
			n, err := datasource.WriteTo(out, enc)
			if err != nil {
				return err
			}
			if e, ok := enc.(interface{ Err() error }); ok && e.Err() != nil {
				return e.Err()
			}
			slog.InfoContext(ctx, "slab encoded", "format", name, "type", enc.Type(), "bytes", n, "stats", r.Stats())
			return nil
		},
	}
	pf := cmd.Flags()
	pf.StringP("format", "f", "TIFF_LZW_INT8", "output format: a pyramid format name, jpeg, png, bil or asc")
	pf.StringP("out", "o", "-", "output file, - for stdout")
	pf.Bool("geotiff", false, "write GeoTIFF placement tags")
	pf.String("proj4", "", "proj4 definition of the slab CRS")
	pf.String("bbox", "", "slab extent as xmin,ymin,xmax,ymax")
	pf.Int("quality", 0, "jpeg quality, 1 to 100")
	pf.Int("deflate-level", 0, "deflate level, 1 to 9")
	return cmd
}

func parseGeoref(proj4, bbox string) (raster.Georef, error) {
	if proj4 == "" || bbox == "" {
		return raster.Georef{}, fmt.Errorf("--proj4 and --bbox go together")
	}
	c, err := crs.ParseProj4(proj4)
	if err != nil {
		return raster.Georef{}, err
	}
	b, err := crs.ParseBBox(bbox)
	if err != nil {
		return raster.Georef{}, err
	}
	return raster.Georef{CRS: c, BBox: b}, nil
}
