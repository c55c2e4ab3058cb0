package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/notargets/PAKernel/runner/builder"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config describes one benchmark run. It is read from an optional YAML file;
// flags given on the command line override the file.
type Config struct {
	Dim         int     `yaml:"dim"`
	Order       int     `yaml:"order"`
	Q1D         int     `yaml:"q1d"`      // 0 selects the default rule for Order
	Elements    int     `yaml:"elements"` // Per direction
	Deformation float64 `yaml:"deformation"`
	Velocity    string  `yaml:"velocity"` // uniform or rotation
	Alpha       float64 `yaml:"alpha"`

	Backend     string `yaml:"backend"`   // host or occa
	Workers     int    `yaml:"workers"`   // Host workers, 0 uses GOMAXPROCS
	Device      string `yaml:"device"`    // OCCA device properties
	Precision   string `yaml:"precision"` // double or single, OCCA backend only
	Repetitions int    `yaml:"repetitions"`

	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

func DefaultConfig() Config {
	return Config{
		Dim:         3,
		Order:       3,
		Elements:    8,
		Deformation: 0.05,
		Velocity:    "rotation",
		Alpha:       1,
		Backend:     "host",
		Device:      `{"mode": "Serial"}`,
		Precision:   "double",
		Repetitions: 10,
		LogLevel:    "info",
	}
}

// LoadConfig reads path over the defaults
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Dim == 1:
		return fmt.Errorf("dim==1 is not supported by the convection operator")
	case c.Dim != 2 && c.Dim != 3:
		return fmt.Errorf("dim must be 2 or 3, have %d", c.Dim)
	case c.Order < 1:
		return fmt.Errorf("order must be positive, have %d", c.Order)
	case c.Q1D < 0:
		return fmt.Errorf("q1d must not be negative, have %d", c.Q1D)
	case c.Elements < 1:
		return fmt.Errorf("need at least one element per direction, have %d", c.Elements)
	case c.Deformation < 0:
		return fmt.Errorf("deformation must not be negative, have %g", c.Deformation)
	case c.Deformation >= 1/(math.Pi*float64(c.Dim)):
		return fmt.Errorf("deformation %g inverts elements in %dD, keep it below %.4f",
			c.Deformation, c.Dim, 1/(math.Pi*float64(c.Dim)))
	case c.Velocity != "uniform" && c.Velocity != "rotation":
		return fmt.Errorf("unknown velocity %q, want uniform or rotation", c.Velocity)
	case c.Backend != "host" && c.Backend != "occa":
		return fmt.Errorf("unknown backend %q, want host or occa", c.Backend)
	case c.Precision != "double" && c.Precision != "single":
		return fmt.Errorf("unknown precision %q, want double or single", c.Precision)
	case c.Repetitions < 1:
		return fmt.Errorf("repetitions must be positive, have %d", c.Repetitions)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// FloatType is the device float type for Precision
func (c Config) FloatType() builder.DataType {
	if c.Precision == "single" {
		return builder.Float32
	}
	return builder.Float64
}

func addConfigFlags(cmd *cobra.Command) {
	d := DefaultConfig()
	f := cmd.Flags()
	f.StringP("config", "c", "", "YAML config file, flags override its values")
	f.IntP("dim", "d", d.Dim, "Mesh dimension, 2 or 3")
	f.IntP("order", "p", d.Order, "Polynomial order")
	f.Int("q1d", d.Q1D, "Quadrature points per direction, 0 for the default rule")
	f.IntP("elements", "n", d.Elements, "Elements per direction")
	f.Float64("deformation", d.Deformation, "Amplitude of the sinusoidal mesh deformation")
	f.String("velocity", d.Velocity, "Velocity field: uniform or rotation")
	f.Float64("alpha", d.Alpha, "Operator coefficient")
	f.String("backend", d.Backend, "Where to apply the operator: host or occa")
	f.IntP("workers", "w", d.Workers, "Host workers, 0 uses GOMAXPROCS")
	f.String("device", d.Device, "OCCA device properties")
	f.String("precision", d.Precision, "Device arithmetic: double or single")
	f.IntP("repetitions", "r", d.Repetitions, "Timed applications of each operator")
	f.String("log-level", d.LogLevel, "debug, info, warn or error")
	f.String("metrics-addr", d.MetricsAddr, "Serve Prometheus metrics on this address and wait for a signal")
}

// resolveConfig loads the config file, if any, and applies the flags the
// user set explicitly
func resolveConfig(cmd *cobra.Command) (Config, error) {
	cfg := DefaultConfig()
	f := cmd.Flags()
	if path, _ := f.GetString("config"); path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	ints := map[string]*int{
		"dim":         &cfg.Dim,
		"order":       &cfg.Order,
		"q1d":         &cfg.Q1D,
		"elements":    &cfg.Elements,
		"workers":     &cfg.Workers,
		"repetitions": &cfg.Repetitions,
	}
	for name, dst := range ints {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}
	floats := map[string]*float64{
		"deformation": &cfg.Deformation,
		"alpha":       &cfg.Alpha,
	}
	for name, dst := range floats {
		if f.Changed(name) {
			*dst, _ = f.GetFloat64(name)
		}
	}
	strs := map[string]*string{
		"velocity":     &cfg.Velocity,
		"backend":      &cfg.Backend,
		"device":       &cfg.Device,
		"precision":    &cfg.Precision,
		"log-level":    &cfg.LogLevel,
		"metrics-addr": &cfg.MetricsAddr,
	}
	for name, dst := range strs {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	return cfg, cfg.Validate()
}
