// Package render turns DOT text into images using Graphviz layout engines.
package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/jstackviz/jstackviz/pkg/errors"
)

// DefaultEngine is the layout engine used when none is configured.
const DefaultEngine = "dot"

// engines is the static set of supported Graphviz layout engines, in the
// order they are offered to users. The core never computes this; it is
// configuration for presentation layers to enumerate.
var engines = []string{"dot", "neato", "fdp", "sfdp", "circo", "twopi", "osage"}

// Engines returns the supported layout engine names.
func Engines() []string {
	out := make([]string, len(engines))
	copy(out, engines)
	return out
}

// ValidateEngine checks that name is a supported layout engine.
func ValidateEngine(name string) error {
	for _, e := range engines {
		if e == name {
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidEngine, "invalid engine: %q (must be one of: dot, neato, fdp, sfdp, circo, twopi, osage)", name)
}

// Format is an output image format.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ValidateFormat checks that f is a supported output format.
func ValidateFormat(f Format) error {
	switch f {
	case FormatSVG, FormatPNG:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be 'svg' or 'png')", string(f))
}

// Render lays out a DOT graph with the given engine and renders it to the
// requested format.
func Render(ctx context.Context, dot string, engine string, format Format) ([]byte, error) {
	if err := ValidateEngine(engine); err != nil {
		return nil, err
	}
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.Layout(engine))

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat(format), &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderSVG renders a DOT graph to SVG with the given layout engine.
func RenderSVG(ctx context.Context, dot string, engine string) ([]byte, error) {
	return Render(ctx, dot, engine, FormatSVG)
}

// RenderPNG renders a DOT graph to PNG with the given layout engine.
func RenderPNG(ctx context.Context, dot string, engine string) ([]byte, error) {
	return Render(ctx, dot, engine, FormatPNG)
}

func gvFormat(f Format) graphviz.Format {
	if f == FormatPNG {
		return graphviz.PNG
	}
	return graphviz.SVG
}
