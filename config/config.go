// Package config loads this module's engine-wide settings from a YAML
// file, the way the rest of this codebase loads its app config: a single
// struct with yaml tags, read once at startup, exposed through small
// accessor methods rather than passed around as a raw map.
package config

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/forgebuild/forgecore/util/shlex"
	"github.com/forgebuild/forgecore/util/status"
)

// CacheConfig configures the action cache backend.
type CacheConfig struct {
	// Backend is "memory" or "disk". Defaults to "memory" if empty.
	Backend string `yaml:"backend"`
	// DiskRootDir is required when Backend is "disk".
	DiskRootDir string `yaml:"disk_root_dir"`
	// MemoryMaxEntries bounds the in-memory backend's entry count.
	MemoryMaxEntries int `yaml:"memory_max_entries"`
}

// DexConfig configures the dexplanner's tool paths and knobs.
type DexConfig struct {
	DexTool                 string   `yaml:"dex_tool"`
	// ExtraDexArgs is a single shell-style string ("--no-optimize --core-library")
	// rather than a YAML list, since that's how these are usually copy-pasted
	// out of a build log. Split with GetExtraDexArgs.
	ExtraDexArgs            string   `yaml:"extra_dex_args"`
	XZCompressionLevel      int      `yaml:"xz_compression_level"`
	MinSdkVersion            int      `yaml:"min_sdk_version"`
	DesugarInterfaceMethods bool     `yaml:"desugar_interface_methods"`
	AdditionalDesugarDeps   []string `yaml:"additional_desugar_deps"`
	SuccessDir              string   `yaml:"success_dir"`
	SecondaryOutputDir      string   `yaml:"secondary_output_dir"`
}

// GetExtraDexArgs tokenizes ExtraDexArgs the way a shell would.
func (d *DexConfig) GetExtraDexArgs() ([]string, error) {
	if d.ExtraDexArgs == "" {
		return nil, nil
	}
	args, err := shlex.Split(d.ExtraDexArgs)
	if err != nil {
		return nil, status.InvalidArgumentErrorf("dex.extra_dex_args: %s", err)
	}
	return args, nil
}

// EngineConfig is the root of the YAML config file.
type EngineConfig struct {
	// ThreadBudget overrides the planner's automatic physical-core
	// estimate; 0 means "let the planner decide".
	ThreadBudget int         `yaml:"thread_budget"`
	Cache        CacheConfig `yaml:"cache"`
	Dex          DexConfig   `yaml:"dex"`
}

// Load reads and parses an engine config file. A missing file is not an
// error -- callers get a zero-value EngineConfig, matching the
// "absent-means-default" posture the rest of the attribute-bag handling
// in this module takes.
func Load(path string) (*EngineConfig, error) {
	var cfg EngineConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, status.InternalErrorf("config: reading %s: %s", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, status.InvalidArgumentErrorf("config: parsing %s: %s", path, err)
	}
	return &cfg, nil
}

// GetCacheBackend returns the configured backend name, defaulting to
// "memory" when unset.
func (c *EngineConfig) GetCacheBackend() string {
	if c.Cache.Backend == "" {
		return "memory"
	}
	return c.Cache.Backend
}

// GetMemoryMaxEntries returns the configured in-memory cache cap,
// defaulting to a reasonable size when unset.
func (c *EngineConfig) GetMemoryMaxEntries() int {
	if c.Cache.MemoryMaxEntries <= 0 {
		return 4096
	}
	return c.Cache.MemoryMaxEntries
}
