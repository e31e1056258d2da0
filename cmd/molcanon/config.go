package main

import (
	"os"

	"github.com/2x3systems/molcanon/libcanon"
	"github.com/2x3systems/molcanon/libcanon/catalog"
	"github.com/2x3systems/molcanon/molcanon"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the optional YAML config file; command line flags override its values.
type Config struct {
	AtomFlags      []string `yaml:"atom_flags"`
	BondFlags      []string `yaml:"bond_flags"`
	MaxSearchNodes int      `yaml:"max_search_nodes"`
	CatalogPath    string   `yaml:"catalog_path"`
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Config
}

func DefaultConfig() Config {
	return Config{
		AtomFlags: []string{"default"},
		BondFlags: []string{"default"},
	}
}

// LoadConfig reads a YAML config file; fields absent from the file keep their defaults.
func LoadConfig(pathname string) (Config, error) {
	cfg := DefaultConfig()
	buf, err := os.ReadFile(pathname)
	if err != nil {
		return cfg, err
	}
	if err = yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing %q", pathname)
	}
	return cfg, nil
}

// resolve merges the config file (if any) beneath flags that were explicitly set.
func (opts *RootOptions) resolve(flags *pflag.FlagSet) (Config, error) {
	cfg := DefaultConfig()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = LoadConfig(opts.ConfigPath); err != nil {
			return cfg, err
		}
	}
	if flags.Changed("atom-flags") {
		cfg.AtomFlags = opts.AtomFlags
	}
	if flags.Changed("bond-flags") {
		cfg.BondFlags = opts.BondFlags
	}
	if flags.Changed("max-search-nodes") {
		cfg.MaxSearchNodes = opts.MaxSearchNodes
	}
	if flags.Changed("catalog") {
		cfg.CatalogPath = opts.CatalogPath
	}
	return cfg, nil
}

func (cfg *Config) propertyFlags() (molcanon.AtomPropertyFlag, molcanon.BondPropertyFlag, error) {
	atomFlags, err := molcanon.ParseAtomPropertyFlags(cfg.AtomFlags)
	if err != nil {
		return 0, 0, err
	}
	bondFlags, err := molcanon.ParseBondPropertyFlags(cfg.BondFlags)
	if err != nil {
		return 0, 0, err
	}
	return atomFlags, bondFlags, nil
}

// NewEngine returns an engine configured by cfg.
func (cfg *Config) NewEngine() (*libcanon.Engine, error) {
	atomFlags, bondFlags, err := cfg.propertyFlags()
	if err != nil {
		return nil, err
	}
	e := libcanon.NewEngine()
	if err = e.SetAtomPropertyFlags(atomFlags); err != nil {
		return nil, err
	}
	if err = e.SetBondPropertyFlags(bondFlags); err != nil {
		return nil, err
	}
	e.SetMaxSearchNodes(cfg.MaxSearchNodes)
	return e, nil
}

func (cfg *Config) catalogOpts() (catalog.Opts, error) {
	atomFlags, bondFlags, err := cfg.propertyFlags()
	if err != nil {
		return catalog.Opts{}, err
	}
	return catalog.Opts{
		DbPathName:     cfg.CatalogPath,
		AtomFlags:      atomFlags,
		BondFlags:      bondFlags,
		MaxSearchNodes: cfg.MaxSearchNodes,
	}, nil
}

// NewDropDupes returns an in-memory set configured by cfg.
func (cfg *Config) NewDropDupes() (catalog.CanonicSet, error) {
	opts, err := cfg.catalogOpts()
	if err != nil {
		return nil, err
	}
	return catalog.NewDropDupes(opts)
}

// OpenCatalog opens the catalog named by cfg (in memory if no path is set).
func (cfg *Config) OpenCatalog() (*catalog.Catalog, error) {
	opts, err := cfg.catalogOpts()
	if err != nil {
		return nil, err
	}
	return catalog.Open(opts)
}
