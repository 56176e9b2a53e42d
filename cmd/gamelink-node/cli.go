package main

import "flag"

// Options holds CLI options for the node.
type Options struct {
	ConfigPath string
	Name       string
}

// ParseFlags parses CLI flags from args and returns Options.
func ParseFlags(args []string) Options {
	fs := flag.NewFlagSet("gamelink-node", flag.ExitOnError)
	var opts Options
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
	fs.StringVar(&opts.Name, "name", "", "Player name (overrides profile.name)")
	_ = fs.Parse(args)
	return opts
}
