package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jstackviz/jstackviz/pkg/analyze"
	"github.com/jstackviz/jstackviz/pkg/cache"
	"github.com/jstackviz/jstackviz/pkg/render"
)

// newRenderCmd creates the render command.
func newRenderCmd() *cobra.Command {
	var (
		engine          string
		format          string
		includeIsolated bool
		output          string
		noCache         bool
	)

	cmd := &cobra.Command{
		Use:   "render [dump-file]",
		Short: "Render the blocked-on graph as an SVG or PNG image",
		Long: `Render parses a thread dump, builds the deadlock-highlighted blocked-on
graph, and lays it out with a Graphviz engine.

Rendered artifacts are cached by dump content, engine, and format, so
re-rendering an unchanged dump is instant. Use --no-cache to force a
fresh layout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			cfg := configFromContext(ctx)

			if engine == "" {
				engine = cfg.Engine
			}
			if err := render.ValidateEngine(engine); err != nil {
				return err
			}
			fmtv := render.Format(format)
			if err := render.ValidateFormat(fmtv); err != nil {
				return err
			}
			if !cmd.Flags().Changed("include-isolated") {
				includeIsolated = cfg.IncludeIsolated
			}

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			text, err := readInput(path)
			if err != nil {
				return err
			}

			store := cache.NewNullCache()
			if !noCache {
				fc, err := cache.NewFileCache(cfg.CacheDir())
				if err != nil {
					logger.Warn("Cache unavailable, rendering without it", "error", err)
				} else {
					store = fc
				}
			}
			defer store.Close()

			ttl := cfg.Cache.TTL()
			if ttl == 0 {
				ttl = cache.DefaultTTL
			}
			key := cache.ArtifactKey(cache.Hash([]byte(text)), cache.ArtifactKeyOpts{
				Engine:          engine,
				Format:          format,
				IncludeIsolated: includeIsolated,
			})

			if data, ok, err := store.Get(ctx, key); err == nil && ok {
				logger.Debug("Cache hit", "key", key)
				return writeArtifact(output, data)
			}

			a, err := analyze.Analyze(text)
			if err != nil {
				return err
			}
			attrs := analyze.Highlight(a.Elements, cfg.Highlight.Fill, cfg.Highlight.Font)
			dot := analyze.BuildGraph(a, includeIsolated, attrs).DOT()

			spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering with %s...", engine))
			spinner.Start()
			data, err := render.Render(ctx, dot, engine, fmtv)
			if err != nil {
				spinner.StopWithError("Rendering failed")
				return err
			}
			spinner.Stop()

			if err := store.Set(ctx, key, data, ttl); err != nil {
				logger.Debug("Cache write failed", "error", err)
			}

			if err := writeArtifact(output, data); err != nil {
				return err
			}
			if output != "" && output != "-" {
				printSuccess("Wrote %s (%d bytes)", output, len(data))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&engine, "engine", "e", "", "layout engine (dot, neato, fdp, sfdp, circo, twopi, osage)")
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format (svg or png)")
	cmd.Flags().BoolVar(&includeIsolated, "include-isolated", false, "include lock-holding threads that have no graph edges")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write image to file instead of stdout")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the artifact cache")

	return cmd
}

func writeArtifact(output string, data []byte) error {
	out, err := openOutput(output)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
