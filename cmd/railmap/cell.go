package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"railnet.ai/internal/sim/multiworld"
	"railnet.ai/internal/sim/rail/model"
)

type cellCmd struct {
	worldOpts `group:"World"`

	Args struct {
		Cell coordFlag `positional-arg-name:"X,Z" required:"true" description:"Cell coordinates"`
	} `positional-args:"true"`

	Format string `short:"f" long:"format" choice:"yaml" choice:"json" default:"yaml" description:"Output format"`
}

type cellReport struct {
	World     string       `json:"world" yaml:"world"`
	Cell      string       `json:"cell" yaml:"cell"`
	Base      string       `json:"base" yaml:"base"`
	Kind      string       `json:"kind" yaml:"kind"`
	Height    int          `json:"height" yaml:"height"`
	Reason    string       `json:"reason,omitempty" yaml:"reason,omitempty"`
	Lanes     int          `json:"lanes" yaml:"lanes"`
	Terrain   *terrainInfo `json:"terrain,omitempty" yaml:"terrain,omitempty"`
	Track     int          `json:"track" yaml:"track"`
	Platforms int          `json:"platforms,omitempty" yaml:"platforms,omitempty"`
}

type terrainInfo struct {
	Min       int `json:"min" yaml:"min"`
	Max       int `json:"max" yaml:"max"`
	Average   int `json:"avg" yaml:"avg"`
	Variation int `json:"variation" yaml:"variation"`
}

// Execute prints the decision for the requested cell.
func (c *cellCmd) Execute(_ []string) error {
	mgr, rt, err := c.open()
	if err != nil {
		return err
	}
	defer mgr.CloseAll()

	rep, err := inspectCell(rt, model.Coord(c.Args.Cell))
	if err != nil {
		return err
	}
	return encodeReport(os.Stdout, rep, strings.ToLower(c.Format))
}

func inspectCell(rt *multiworld.Runtime, cell model.Coord) (cellReport, error) {
	d, ok := rt.Materialize(cell)
	if !ok {
		return cellReport{}, fmt.Errorf("cell %s is outside world %s", cell, rt.Spec.ID)
	}
	rep := cellReport{
		World:     rt.Spec.ID,
		Cell:      cell.String(),
		Base:      d.Base.Kind.String(),
		Kind:      d.Cell.Kind.String(),
		Height:    d.Cell.Height,
		Reason:    string(d.Reason),
		Lanes:     d.Cell.Lanes,
		Track:     len(rt.Store.TrackIn(cell)),
		Platforms: len(d.Cell.Platforms),
	}
	if p := d.Profile; p != nil {
		rep.Terrain = &terrainInfo{Min: p.Min, Max: p.Max, Average: p.Average, Variation: p.Variation()}
	}
	return rep, nil
}

func encodeReport(w io.Writer, v any, format string) error {
	switch format {
	case "", "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
