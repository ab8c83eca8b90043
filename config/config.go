// Package config loads ITP settings from defaults, a YAML file and ITP_*
// environment variables. Command line flags are applied on top by the
// caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/progrium/itp-go/transfer"
	"github.com/progrium/itp-go/transport"
	"gopkg.in/yaml.v3"
)

// DefaultPort is the TCP port used when no address is configured.
const DefaultPort = 12345

// EnvPrefix prefixes environment variables naming config keys,
// e.g. ITP_POLL_TIMEOUT.
const EnvPrefix = "ITP_"

// Config holds the settings shared by the itp commands.
type Config struct {
	Transport   string        `mapstructure:"transport" yaml:"transport"`
	Address     string        `mapstructure:"address" yaml:"address"`
	PollTimeout time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	Deadline    time.Duration `mapstructure:"deadline" yaml:"deadline"`
	StrictAcks  bool          `mapstructure:"strict_acks" yaml:"strict_acks"`
	MaxSize     int           `mapstructure:"max_size" yaml:"max_size"`
	LogLevel    string        `mapstructure:"log_level" yaml:"log_level"`
	Baud        int           `mapstructure:"baud" yaml:"baud"`
	Announce    bool          `mapstructure:"announce" yaml:"announce"`
	Discover    bool          `mapstructure:"discover" yaml:"discover"`
	Raw         bool          `mapstructure:"raw" yaml:"raw"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Transport:   "tcp",
		Address:     fmt.Sprintf(":%d", DefaultPort),
		PollTimeout: transfer.DefaultPollTimeout,
		LogLevel:    "info",
		Baud:        transport.DefaultBaud,
	}
}

// Load reads the YAML file at path, if path is not empty, then applies
// ITP_* environment variables.
func Load(path string) (Config, error) {
	return load(path, os.Environ())
}

func load(path string, environ []string) (Config, error) {
	raw := map[string]interface{}{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	known := keys()
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, EnvPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
		if known[key] {
			raw[key] = v
		}
	}

	cfg := Default()
	if err := Decode(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode merges raw into cfg. Strings are converted to the field types and
// unknown keys are an error.
func Decode(raw map[string]interface{}, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func keys() map[string]bool {
	known := map[string]bool{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		known[t.Field(i).Tag.Get("mapstructure")] = true
	}
	return known
}

// Validate reports every setting out of range.
func (c Config) Validate() error {
	var errs []error
	if c.Transport == "" {
		errs = append(errs, errors.New("transport is required"))
	}
	if c.PollTimeout < 0 {
		errs = append(errs, fmt.Errorf("poll_timeout %s is negative", c.PollTimeout))
	}
	if c.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("max_attempts %d is negative", c.MaxAttempts))
	}
	if c.Deadline < 0 {
		errs = append(errs, fmt.Errorf("deadline %s is negative", c.Deadline))
	}
	if c.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("max_size %d is negative", c.MaxSize))
	}
	if c.Baud <= 0 {
		errs = append(errs, fmt.Errorf("baud %d must be positive", c.Baud))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// Retry returns the retry policy for both roles.
func (c Config) Retry() transfer.RetryPolicy {
	return transfer.RetryPolicy{MaxAttempts: c.MaxAttempts, Deadline: c.Deadline}
}

// Sender builds a Sender from the settings.
func (c Config) Sender(log *slog.Logger) *transfer.Sender {
	return &transfer.Sender{
		PollTimeout: c.PollTimeout,
		Retry:       c.Retry(),
		StrictAcks:  c.StrictAcks,
		Logger:      log,
	}
}

// Receiver builds a Receiver from the settings.
func (c Config) Receiver(log *slog.Logger) *transfer.Receiver {
	return &transfer.Receiver{
		PollTimeout: c.PollTimeout,
		Retry:       c.Retry(),
		Logger:      log,
	}
}

// DialAddr is Address with the baud appended for serial devices that don't
// name one.
func (c Config) DialAddr() string {
	if c.Transport == "serial" && !strings.Contains(c.Address, "@") {
		return fmt.Sprintf("%s@%d", c.Address, c.Baud)
	}
	return c.Address
}

// String renders the settings as YAML.
func (c Config) String() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err.Error()
	}
	return string(b)
}
