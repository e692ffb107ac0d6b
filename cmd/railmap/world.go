package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"railnet.ai/internal/sim/multiworld"
	"railnet.ai/internal/sim/rail/model"
	"railnet.ai/internal/sim/tuning"
)

// worldOpts selects and opens one namespace without touching disk output.
type worldOpts struct {
	Tuning  string `long:"tuning" description:"Path to railnet.yaml (default: built-in tuning)"`
	Worlds  string `long:"worlds" description:"Path to worlds.yaml (default: built-in worlds)"`
	World   string `short:"w" long:"world" description:"World id (default: the configured default)"`
	Seed    int64  `short:"s" long:"seed" default:"1337" description:"Server seed"`
	Verbose bool   `short:"v" long:"verbose" description:"Log generator diagnostics to stderr"`
}

func (o worldOpts) open() (*multiworld.Manager, *multiworld.Runtime, error) {
	tune, err := tuning.Load(o.Tuning)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := multiworld.Load(o.Worlds)
	if err != nil {
		return nil, nil, err
	}
	logger := log.New(io.Discard, "", 0)
	if o.Verbose {
		logger = log.New(os.Stderr, "[railmap] ", log.Lmicroseconds)
	}
	mgr, err := multiworld.NewManager(cfg, multiworld.Options{Seed: o.Seed, Tuning: tune, Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	ns := o.World
	if ns == "" {
		ns = mgr.DefaultID()
	}
	rt, err := mgr.Get(ns)
	if err != nil {
		return nil, nil, err
	}
	return mgr, rt, nil
}

// coordFlag parses "x,z" cell coordinates on the command line.
type coordFlag model.Coord

func (c *coordFlag) UnmarshalFlag(value string) error {
	v, err := model.ParseCoord(value)
	if err != nil {
		return err
	}
	*c = coordFlag(v)
	return nil
}

func (c coordFlag) MarshalFlag() (string, error) {
	return model.Coord(c).String(), nil
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
