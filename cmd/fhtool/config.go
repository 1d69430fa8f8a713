package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moffa90/go-fwhub/chip"
	"github.com/moffa90/go-fwhub/fwhub"
	"github.com/moffa90/go-fwhub/mmio"
)

// Config is the fhtool configuration file.
//
//	mem_device: /dev/mem
//	data_phys: 0xFFF00000
//	lock_phys: 0xFFB00000
//	size: 0x100000
//	block_size: 0x10000
//	poll_timeout: 10s
type Config struct {
	MemDevice   string   `yaml:"mem_device"`   // Physical memory device (default: /dev/mem)
	DataPhys    uint64   `yaml:"data_phys"`    // Flash array window
	LockPhys    uint64   `yaml:"lock_phys"`    // Register window
	Size        int      `yaml:"size"`         // Flash size in bytes
	BlockSize   int      `yaml:"block_size"`   // Erase block size in bytes
	PollTimeout Duration `yaml:"poll_timeout"` // Bound on erase/program polls, 0 for none
}

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func defaultConfig() Config {
	return Config{
		MemDevice:   mmio.DefaultDevMem,
		DataPhys:    fwhub.DefaultDataPhys,
		LockPhys:    fwhub.DefaultLockPhys,
		Size:        fwhub.DefaultSize,
		BlockSize:   fwhub.DefaultBlockSize,
		PollTimeout: Duration(chip.DefaultTiming().PollTimeout),
	}
}

// loadConfig reads path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Size <= 0 || cfg.BlockSize <= 0 || cfg.Size%cfg.BlockSize != 0 {
		return cfg, fmt.Errorf("config: size 0x%X must be a positive multiple of block_size 0x%X", cfg.Size, cfg.BlockSize)
	}
	return cfg, nil
}

// options turns the configuration into device options.
func (c Config) options() []fwhub.Option {
	return []fwhub.Option{
		fwhub.WithWindows(c.DataPhys, c.LockPhys),
		fwhub.WithSize(c.Size),
		fwhub.WithBlockSize(c.BlockSize),
		fwhub.WithPollTimeout(c.PollTimeout.Duration()),
	}
}
