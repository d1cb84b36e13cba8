// Package config loads readmegen configuration from defaults, an optional
// YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/readmegen/readmegen/internal/appid"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigFile is an explicit config path. When empty the XDG config dir
	// and ./config are searched for config.yaml.
	ConfigFile string

	// DotEnvFile is loaded into the process environment before reading env
	// vars. Existing variables win. Empty means ".env"; a missing file is
	// not an error.
	DotEnvFile string

	// Identity supplies the env prefix and config name. Nil uses the
	// built-in identity.
	Identity *appidentity.Identity

	// Overrides are applied last, keyed by config path (e.g. "server.port").
	Overrides map[string]any
}

// legacyEnv maps config keys to the unprefixed variable names the service
// has always honored.
var legacyEnv = map[string]string{
	"completion.api_key": "OPENAI_API_KEY",
	"github.token":       "GITHUB_TOKEN",
	"server.port":        "PORT",
}

// Load reads configuration with precedence defaults < config file < env
// (.env included) < overrides. It is safe to call again on reload.
func Load(opts LoadOptions) (*Config, string, error) {
	identity := opts.Identity
	if identity == nil {
		identity = appid.Default()
	}

	if err := loadDotEnv(opts.DotEnvFile); err != nil {
		return nil, "", err
	}

	v := viper.New()
	SetDefaults(v)

	used, err := readConfigFile(v, opts.ConfigFile, identity)
	if err != nil {
		return nil, "", err
	}

	if err := bindEnv(v, envPrefix(identity)); err != nil {
		return nil, "", err
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	cfg, err := decode(v.AllSettings())
	if err != nil {
		return nil, "", err
	}

	setConfig(cfg)
	return cfg, used, nil
}

// SetDefaults registers every config key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.max_body_bytes", 64<<10)
	v.SetDefault("server.trust_proxy_headers", false)
	v.SetDefault("server.admin_token", "")

	v.SetDefault("throttle.enabled", true)
	v.SetDefault("throttle.window", "15s")

	v.SetDefault("github.base_url", "https://api.github.com")
	v.SetDefault("github.token", "")
	v.SetDefault("github.timeout", "10s")
	v.SetDefault("github.user_agent", "readmegen")

	v.SetDefault("completion.provider", "openai")
	v.SetDefault("completion.base_url", "https://api.openai.com/v1")
	v.SetDefault("completion.api_key", "")
	v.SetDefault("completion.model", "gpt-3.5-turbo")
	v.SetDefault("completion.timeout", "0s")

	v.SetDefault("prompt.path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)
}

// GetConfig returns the most recently loaded configuration (thread-safe).
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath(identity *appidentity.Identity) string {
	dir := gfconfig.GetAppConfigDir(configName(identity))
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

func readConfigFile(v *viper.Viper, explicit string, identity *appidentity.Identity) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config file %s: %w", explicit, err)
		}
		return v.ConfigFileUsed(), nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir := gfconfig.GetAppConfigDir(configName(identity)); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config file: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// bindEnv binds PREFIX_SECTION_KEY for every known key, plus the legacy
// unprefixed names. The prefixed name wins when both are set.
func bindEnv(v *viper.Viper, prefix string) error {
	for _, key := range v.AllKeys() {
		names := []string{prefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		if legacy, ok := legacyEnv[key]; ok {
			names = append(names, legacy)
		}
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

func decode(settings map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func envPrefix(identity *appidentity.Identity) string {
	prefix := appid.EnvPrefix
	if identity != nil && strings.TrimSpace(identity.EnvPrefix) != "" {
		prefix = strings.TrimSpace(identity.EnvPrefix)
	}
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return prefix
}

func configName(identity *appidentity.Identity) string {
	if identity != nil {
		if name := strings.TrimSpace(identity.ConfigName); name != "" {
			return name
		}
		if name := strings.TrimSpace(identity.BinaryName); name != "" {
			return name
		}
	}
	return appid.ConfigName
}
