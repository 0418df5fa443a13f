// Package config loads service settings from configs/config.yml, a .env file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
)

// Gateway transports.
const (
	TransportREST = "rest"
	TransportMQTT = "mqtt"
)

// Config is the resolved service configuration.
type Config struct {
	Port     string
	LogLevel string
	DBPath   string
	Store    StoreConfig
	Engine   EngineConfig
	Gateway  GatewayConfig
	MQTT     MQTTConfig
	Auth     AuthConfig
}

type StoreConfig struct {
	Driver string
	Dir    string
}

type EngineConfig struct {
	ActionDelay       time.Duration
	LoopInterval      time.Duration
	HoldOnSensorFault bool
}

type GatewayConfig struct {
	Transport string
	URL       string
	Token     string
	Timeout   time.Duration
}

type MQTTConfig struct {
	Broker            string
	Username          string
	Password          string
	ClientID          string
	StatestreamPrefix string
	CallServiceTopic  string
}

type AuthConfig struct {
	Enabled    bool
	SigningKey string
	TokenTTL   time.Duration
}

// Options locate the config sources. Zero values use the defaults.
type Options struct {
	ConfigDir  string // directory holding config.yml
	ConfigFile string // explicit file, overrides ConfigDir
	EnvFile    string // dotenv file, ".env" by default
}

var (
	errUnknownStore     = errors.New("store.driver must be sqlite or file")
	errUnknownTransport = errors.New("gateway.transport must be rest or mqtt")
	errMissingBroker    = errors.New("mqtt.broker is required for the mqtt transport")
	errMissingKey       = errors.New("auth.signing_key is required when auth is enabled")
	errNegativeDuration = errors.New("durations must not be negative")
)

// legacy environment names, checked after the EMS_ form.
var envAliases = map[string][]string{
	"port":                 {"PORT"},
	"log.level":            {"LOG_LEVEL"},
	"engine.action_delay":  {"ACTION_DELAY", "EMS_DELAY"},
	"engine.loop_interval": {"EMS_LOOP_INTERVAL", "LOOP_INTERVAL"},
	"gateway.token":        {"EMS_HA_TOKEN", "SUPERVISOR_TOKEN"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8099")
	v.SetDefault("log.level", "info")
	v.SetDefault("db.path", "/data/ems.db")
	v.SetDefault("store.driver", StoreSQLite)
	v.SetDefault("store.dir", "/data")
	v.SetDefault("engine.action_delay", "90s")
	v.SetDefault("engine.loop_interval", "30s")
	v.SetDefault("engine.hold_on_sensor_fault", false)
	v.SetDefault("gateway.transport", TransportREST)
	v.SetDefault("gateway.url", "http://supervisor/core")
	v.SetDefault("gateway.token", "")
	v.SetDefault("gateway.timeout", "30s")
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "smarti-ems")
	v.SetDefault("mqtt.statestream_prefix", "homeassistant")
	v.SetDefault("mqtt.call_service_topic", "nodered/proxy/call_service")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", "12h")
}

// Load reads the dotenv file (if present), the YAML file (if present) and the
// environment, in increasing order of precedence.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		dir := opts.ConfigDir
		if dir == "" {
			dir = "configs"
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("EMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		envKey := "EMS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, envKey}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:     v.GetString("port"),
		LogLevel: v.GetString("log.level"),
		DBPath:   v.GetString("db.path"),
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("store.driver")),
			Dir:    v.GetString("store.dir"),
		},
		Engine: EngineConfig{
			HoldOnSensorFault: v.GetBool("engine.hold_on_sensor_fault"),
		},
		Gateway: GatewayConfig{
			Transport: strings.ToLower(v.GetString("gateway.transport")),
			URL:       v.GetString("gateway.url"),
			Token:     v.GetString("gateway.token"),
		},
		MQTT: MQTTConfig{
			Broker:            v.GetString("mqtt.broker"),
			Username:          v.GetString("mqtt.username"),
			Password:          v.GetString("mqtt.password"),
			ClientID:          v.GetString("mqtt.client_id"),
			StatestreamPrefix: v.GetString("mqtt.statestream_prefix"),
			CallServiceTopic:  v.GetString("mqtt.call_service_topic"),
		},
		Auth: AuthConfig{
			Enabled:    v.GetBool("auth.enabled"),
			SigningKey: v.GetString("auth.signing_key"),
		},
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"engine.action_delay", &cfg.Engine.ActionDelay},
		{"engine.loop_interval", &cfg.Engine.LoopInterval},
		{"gateway.timeout", &cfg.Gateway.Timeout},
		{"auth.token_ttl", &cfg.Auth.TokenTTL},
	}
	for _, d := range durations {
		parsed, err := ParseDuration(v.GetString(d.key))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseDuration accepts Go durations ("90s", "1m30s") and bare numbers, which
// are seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreSQLite, StoreFile:
	default:
		return fmt.Errorf("%w: %q", errUnknownStore, c.Store.Driver)
	}
	switch c.Gateway.Transport {
	case TransportREST:
	case TransportMQTT:
		if c.MQTT.Broker == "" {
			return errMissingBroker
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownTransport, c.Gateway.Transport)
	}
	if c.Auth.Enabled && c.Auth.SigningKey == "" {
		return errMissingKey
	}
	if c.Engine.ActionDelay < 0 || c.Engine.LoopInterval < 0 || c.Gateway.Timeout < 0 || c.Auth.TokenTTL < 0 {
		return errNegativeDuration
	}
	return nil
}
