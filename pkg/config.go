package dupegraph

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-ini/ini"
)

// Config represents the dupegraph configuration
type Config struct {
	configPath string
	ini        *ini.File
}

// ScanConfig represents scan behaviour configuration
type ScanConfig struct {
	BlockSize       string // Hash read block size as a human size (default: "4M")
	Threads         int    // Worker pool size, 0 = all available cores (default: 4)
	CrossFilesystem bool   // Allow traversal across filesystem boundaries (default: false)
}

// HashConfig represents hash algorithm configuration
type HashConfig struct {
	Default string // Default hash algorithm
}

// SymlinkConfig represents symlink handling configuration
type SymlinkConfig struct {
	Mode string // Default symlink mode: none, target
}

// OutputConfig represents output format configuration
type OutputConfig struct {
	Format string // Default output format: human, json
}

// AllConfig represents all configuration options
type AllConfig struct {
	Scan    *ScanConfig
	Hash    *HashConfig
	Symlink *SymlinkConfig
	Output  *OutputConfig
}

// LoadConfig loads configuration from the given file, creating it with
// defaults when it does not exist yet
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		configPath: configPath,
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg.ini = ini.Empty()
		if err := cfg.setDefaults(); err != nil {
			return nil, fmt.Errorf("failed to set default config: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	} else {
		iniFile, err := ini.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg.ini = iniFile
	}

	return cfg, nil
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() error {
	scanSection, err := c.ini.NewSection("scan")
	if err != nil {
		return fmt.Errorf("failed to create scan section: %w", err)
	}
	if _, err = scanSection.NewKey("block_size", "4M"); err != nil {
		return fmt.Errorf("failed to set default block size: %w", err)
	}
	if _, err = scanSection.NewKey("threads", fmt.Sprintf("%d", DefaultThreads)); err != nil {
		return fmt.Errorf("failed to set default threads: %w", err)
	}
	if _, err = scanSection.NewKey("cross_filesystem", "false"); err != nil {
		return fmt.Errorf("failed to set default cross_filesystem: %w", err)
	}

	fileHashSection, err := c.ini.NewSection("filehash")
	if err != nil {
		return fmt.Errorf("failed to create filehash section: %w", err)
	}
	if _, err = fileHashSection.NewKey("default", "sha512"); err != nil {
		return fmt.Errorf("failed to set default hash algorithm: %w", err)
	}

	symlinkSection, err := c.ini.NewSection("symlink")
	if err != nil {
		return fmt.Errorf("failed to create symlink section: %w", err)
	}
	if _, err = symlinkSection.NewKey("mode", "none"); err != nil {
		return fmt.Errorf("failed to set default symlink mode: %w", err)
	}

	outputSection, err := c.ini.NewSection("output")
	if err != nil {
		return fmt.Errorf("failed to create output section: %w", err)
	}
	if _, err = outputSection.NewKey("format", "human"); err != nil {
		return fmt.Errorf("failed to set default output format: %w", err)
	}

	return nil
}

// GetScanConfig returns the scan configuration
func (c *Config) GetScanConfig() *ScanConfig {
	scanConfig := &ScanConfig{
		BlockSize:       "4M",           // fallback default
		Threads:         DefaultThreads, // fallback default
		CrossFilesystem: false,          // fallback default
	}

	if c.ini.HasSection("scan") {
		section := c.ini.Section("scan")
		if section.HasKey("block_size") {
			if blockSize := section.Key("block_size").String(); blockSize != "" {
				scanConfig.BlockSize = blockSize
			}
		}
		if section.HasKey("threads") {
			if threads, err := section.Key("threads").Int(); err == nil {
				scanConfig.Threads = threads
			}
		}
		if section.HasKey("cross_filesystem") {
			if cross, err := section.Key("cross_filesystem").Bool(); err == nil {
				scanConfig.CrossFilesystem = cross
			}
		}
	}

	return scanConfig
}

// GetHashConfig returns the hash configuration
func (c *Config) GetHashConfig() *HashConfig {
	hashConfig := &HashConfig{
		Default: "sha512", // fallback default
	}

	if c.ini.HasSection("filehash") {
		section := c.ini.Section("filehash")
		if section.HasKey("default") {
			hashConfig.Default = section.Key("default").String()
		}
	}

	return hashConfig
}

// GetSymlinkConfig returns the symlink configuration
func (c *Config) GetSymlinkConfig() *SymlinkConfig {
	symlinkConfig := &SymlinkConfig{
		Mode: "none", // fallback default
	}

	if c.ini.HasSection("symlink") {
		section := c.ini.Section("symlink")
		if section.HasKey("mode") {
			symlinkConfig.Mode = section.Key("mode").String()
		}
	}

	return symlinkConfig
}

// GetOutputConfig returns the output configuration
func (c *Config) GetOutputConfig() *OutputConfig {
	outputConfig := &OutputConfig{
		Format: "human", // fallback default
	}

	if c.ini.HasSection("output") {
		section := c.ini.Section("output")
		if section.HasKey("format") {
			outputConfig.Format = section.Key("format").String()
		}
	}

	return outputConfig
}

// GetAllConfig returns all configuration options
func (c *Config) GetAllConfig() *AllConfig {
	return &AllConfig{
		Scan:    c.GetScanConfig(),
		Hash:    c.GetHashConfig(),
		Symlink: c.GetSymlinkConfig(),
		Output:  c.GetOutputConfig(),
	}
}

// ScannerOptions resolves the config into scanner options. Flags layered on
// top by the CLI overwrite individual fields afterwards.
func (c *Config) ScannerOptions() (Options, error) {
	scanConfig := c.GetScanConfig()

	blockSize, err := ParseHumanSize(scanConfig.BlockSize)
	if err != nil {
		return Options{}, fmt.Errorf("invalid block_size in config: %w", err)
	}

	mode, err := ParseSymlinkMode(c.GetSymlinkConfig().Mode)
	if err != nil {
		return Options{}, err
	}

	return Options{
		BlockSize:       blockSize,
		Threads:         scanConfig.Threads,
		CrossFilesystem: scanConfig.CrossFilesystem,
		SymlinkMode:     mode,
		Algorithm:       c.GetHashConfig().Default,
	}, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	return c.ini.SaveTo(c.configPath)
}

// ApplyOverrides applies command-line overrides to the configuration.
// Accepts strings like "default:sha256", "block_size:8M", "threads:8"
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid override format '%s', expected 'key:value'", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "block_size":
			c.ini.Section("scan").Key("block_size").SetValue(value)
		case "threads":
			c.ini.Section("scan").Key("threads").SetValue(value)
		case "cross_filesystem":
			c.ini.Section("scan").Key("cross_filesystem").SetValue(value)
		case "default":
			c.ini.Section("filehash").Key("default").SetValue(value)
		case "mode":
			c.ini.Section("symlink").Key("mode").SetValue(value)
		case "format":
			c.ini.Section("output").Key("format").SetValue(value)
		default:
			return fmt.Errorf("unsupported override key '%s' (supported: block_size, threads, cross_filesystem, default, mode, format)", key)
		}
	}

	return nil
}

// ValidateHashAlgorithm validates that a hash algorithm is supported
func ValidateHashAlgorithm(algorithm string) error {
	switch strings.ToLower(algorithm) {
	case "sha1", "sha256", "sha512":
		return nil
	default:
		return fmt.Errorf("unsupported hash algorithm: %s (supported: sha1, sha256, sha512)", algorithm)
	}
}

// ValidateOutputFormat validates that an output format is supported
func ValidateOutputFormat(format string) error {
	switch strings.ToLower(format) {
	case "human", "json":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s (supported: human, json)", format)
	}
}
