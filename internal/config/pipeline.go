// PipelineConfig is arrowflow's own configuration surface: which pipeline to
// run, which built-in plugins are enabled, and dispatcher defaults. It is
// modeled on GlobalConfig/loader.go's viper + mapstructure layout (nested
// Xxx Config structs, one Load entry point) but scoped to the runtime this
// spec actually describes, rather than the teacher's packet-capture-agent
// settings (Kafka reporters, task persistence, decoder tunables), which
// belong to a different domain this repo no longer drives.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// OperatorInvocationConfig is the config-file shape of a single operator
// invocation: a name, positional args, and a free-form options map decoded
// with mapstructure into whatever the named plugin's Factory expects
// (spec.md §3 "Operator invocation (runtime view)"). The expression
// language that would normally produce this AST is an explicit external
// collaborator (spec.md §1); this is the ambient config-file substitute.
type OperatorInvocationConfig struct {
	Name    string         `mapstructure:"name"`
	Args    []string       `mapstructure:"args"`
	Options map[string]any `mapstructure:"options"`
}

// LoadSaveConfig describes a `load`/`save` URI step the dispatcher should
// Assemble, with an optional user pipeline tail spliced in per spec.md
// §4.7 step 10.
type LoadSaveConfig struct {
	URI      string                     `mapstructure:"uri"`
	Pipeline []OperatorInvocationConfig `mapstructure:"pipeline"`
}

// DispatcherConfig toggles which built-in plugin packages register
// themselves, mirroring the teacher's per-feature enable flags
// (e.g. command_channel.enabled) rather than an all-or-nothing plugin set.
type DispatcherConfig struct {
	EnabledSchemes      []string `mapstructure:"enabled_schemes"`
	EnabledFormats      []string `mapstructure:"enabled_formats"`
	EnabledCompressions []string `mapstructure:"enabled_compressions"`
}

// PipelineConfig is the root of an arrowflow pipeline-description file.
type PipelineConfig struct {
	Load       *LoadSaveConfig  `mapstructure:"load"`
	Save       *LoadSaveConfig  `mapstructure:"save"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
}

// LoadPipeline reads a pipeline-description file with a fresh viper
// instance, no env prefix beyond AutomaticEnv,
// unmarshalled directly (no wrapper root key, since a pipeline file has no
// equivalent of the `capture-agent:` namespace).
func LoadPipeline(path string) (*PipelineConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read pipeline config %q: %w", path, err)
	}
	v.AutomaticEnv()

	var cfg PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline config: %w", err)
	}
	if cfg.Load == nil && cfg.Save == nil {
		return nil, fmt.Errorf("pipeline config %q: must declare load or save", path)
	}
	if cfg.Load != nil && cfg.Save != nil {
		return nil, fmt.Errorf("pipeline config %q: declares both load and save", path)
	}
	return &cfg, nil
}

// Sanitize rejects known-dangerous configuration combinations before the
// runtime starts, the Go rendering of
// original_source/libvast/src/launch_parameter_sanitation.cpp's
// pre-flight checks (spec.md §10 supplement #3). It is deliberately narrow:
// it only catches combinations that are unambiguously wrong, not policy
// choices (e.g. it does not forbid plaintext schemes generally, only the
// specific tls=false + non-loopback-listen combination the original
// flags).
func (c *PipelineConfig) Sanitize() error {
	check := func(ls *LoadSaveConfig) error {
		if ls == nil {
			return nil
		}
		if ls.URI == "" {
			return fmt.Errorf("launch_parameter_sanitation: load/save uri must not be empty")
		}
		tlsDisabled, hasTLSFlag := ls.Pipeline0Option("tls")
		listen, hasListen := ls.Pipeline0Option("listen")
		if hasTLSFlag && hasListen {
			if disabled, ok := tlsDisabled.(bool); ok && !disabled {
				if addr, ok := listen.(string); ok && addr != "" && !isLoopback(addr) {
					return fmt.Errorf("launch_parameter_sanitation: tls.enabled=false with non-loopback listen address %q is refused", addr)
				}
			}
		}
		return nil
	}
	if err := check(c.Load); err != nil {
		return err
	}
	return check(c.Save)
}

// Pipeline0Option looks up key in the first pipeline-tail operator's
// options, a convenience Sanitize uses to inspect scheme-level flags
// (tls/listen) without the dispatcher having run yet.
func (ls *LoadSaveConfig) Pipeline0Option(key string) (any, bool) {
	if len(ls.Pipeline) == 0 {
		return nil, false
	}
	v, ok := ls.Pipeline[0].Options[key]
	return v, ok
}

func isLoopback(addr string) bool {
	return addr == "127.0.0.1" || addr == "localhost" || addr == "::1" ||
		len(addr) >= 10 && addr[:10] == "127.0.0.1:"
}
