package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "NOVALITE"

type NovaLiteConfig struct {
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Engine struct {
		StrictGrouping   bool          `mapstructure:"strict_grouping"`
		HashJoin         bool          `mapstructure:"hash_join"`
		ReorderJoins     bool          `mapstructure:"reorder_joins"`
		StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	} `mapstructure:"engine"`

	Shell struct {
		NullText  string `mapstructure:"null_text"`
		EmptyText string `mapstructure:"empty_text"`
		Separator string `mapstructure:"separator"`
		History   string `mapstructure:"history"`
	} `mapstructure:"shell"`

	SLT struct {
		Workers       int `mapstructure:"workers"`
		HashThreshold int `mapstructure:"hash_threshold"`
	} `mapstructure:"slt"`
}

var defaults = map[string]any{
	"log.level":                "warn",
	"log.format":               "text",
	"engine.strict_grouping":   false,
	"engine.hash_join":         true,
	"engine.reorder_joins":     true,
	"engine.statement_timeout": time.Duration(0),
	"shell.null_text":          "NULL",
	"shell.empty_text":         "(empty)",
	"shell.separator":          "\t",
	"shell.history":            "",
	"slt.workers":              1,
	"slt.hash_threshold":       0,
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the built-in configuration.
func Default() *NovaLiteConfig {
	cfg, err := decode(newViper())
	if err != nil {
		// the defaults table always decodes
		panic(err)
	}
	return cfg
}

// LoadConfig merges the defaults, the yaml file at path (optional when
// empty), NOVALITE_* environment variables and the flags in fs that were
// set explicitly. Flags are matched to keys by name, with '-' standing for
// '_', either with the key's section ("log-level" -> log.level) or without
// it ("hash-join" -> engine.hash_join).
func LoadConfig(path string, fs *pflag.FlagSet) (*NovaLiteConfig, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if fs != nil {
		if err := bindFlags(v, fs); err != nil {
			return nil, err
		}
	}
	return decode(v)
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		name := strings.ReplaceAll(f.Name, "-", "_")
		for k := range defaults {
			if strings.ReplaceAll(k, ".", "_") == name || strings.HasSuffix(k, "."+name) {
				if bindErr := v.BindPFlag(k, f); bindErr != nil && err == nil {
					err = fmt.Errorf("bind flag %s: %w", f.Name, bindErr)
				}
			}
		}
	})
	return err
}

func decode(v *viper.Viper) (*NovaLiteConfig, error) {
	var cfg NovaLiteConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseLevel maps a log.level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: invalid log.level %q", s)
	}
	return l, nil
}
