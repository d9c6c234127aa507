package config

import (
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/apollo-exporter/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "APOLLO"
	configName = "apollo-exporter"

	DefaultPort         = 9926
	DefaultBind         = "0.0.0.0"
	DefaultPollInterval = 30
	DefaultHTTPTimeout  = 10
	DefaultLogLevel     = string(LogLevelInfo)
	DefaultNamespace    = "apollo_air1"
	DefaultRedisKey     = "apollo:metrics"
	DefaultRedisTTL     = 120
)

type Config struct {
	Hosts         []string `mapstructure:"hosts"`
	Names         []string `mapstructure:"names"`
	Port          int      `mapstructure:"port"`
	Bind          string   `mapstructure:"bind"`
	PollInterval  int      `mapstructure:"poll_interval"`
	HTTPTimeout   int      `mapstructure:"http_timeout"`
	LogLevel      string   `mapstructure:"log_level"`
	Namespace     string   `mapstructure:"namespace"`
	PIDFile       string   `mapstructure:"pid_file"`
	RedisAddr     string   `mapstructure:"redis_addr"`
	RedisPassword string   `mapstructure:"redis_password"`
	RedisDB       int      `mapstructure:"redis_db"`
	RedisKey      string   `mapstructure:"redis_key"`
	RedisTTL      int      `mapstructure:"redis_ttl"`
}

// option ties a config key to its flag and environment variable.
type option struct {
	key  string
	flag string
	env  string
}

var options = []option{
	{"hosts", "hosts", "APOLLO_HOSTS"},
	{"names", "names", "APOLLO_NAMES"},
	{"port", "port", "APOLLO_EXPORTER_PORT"},
	{"bind", "bind", "APOLLO_EXPORTER_BIND"},
	{"poll_interval", "poll-interval", "APOLLO_POLL_INTERVAL"},
	{"http_timeout", "http-timeout", "APOLLO_HTTP_TIMEOUT"},
	{"log_level", "log-level", "APOLLO_LOG_LEVEL"},
	{"namespace", "namespace", "APOLLO_NAMESPACE"},
	{"pid_file", "pid-file", "APOLLO_PID_FILE"},
	{"redis_addr", "redis-addr", "APOLLO_REDIS_ADDR"},
	{"redis_password", "redis-password", "APOLLO_REDIS_PASSWORD"},
	{"redis_db", "redis-db", "APOLLO_REDIS_DB"},
	{"redis_key", "redis-key", "APOLLO_REDIS_KEY"},
	{"redis_ttl", "redis-ttl", "APOLLO_REDIS_TTL"},
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet(configName, pflag.ContinueOnError)

	flags.String("config", "", "Path to a TOML config file")
	flags.StringSlice("hosts", nil, "Comma-separated list of device URLs (e.g. http://192.168.1.100,http://192.168.1.101)")
	flags.StringSlice("names", nil, "Comma-separated list of device names, in the same order as hosts")
	flags.IntP("port", "p", DefaultPort, "Port to expose metrics on")
	flags.String("bind", DefaultBind, "Bind address for the metrics server")
	flags.Int("poll-interval", DefaultPollInterval, "Poll interval in seconds")
	flags.Int("http-timeout", DefaultHTTPTimeout, "Per-request HTTP timeout in seconds")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.String("namespace", DefaultNamespace, "Metric name namespace")
	flags.String("pid-file", "", "Write the process ID to this file")
	flags.String("redis-addr", "", "Mirror published snapshots to this Redis server")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database index")
	flags.String("redis-key", DefaultRedisKey, "Redis key holding the latest snapshot")
	flags.Int("redis-ttl", DefaultRedisTTL, "Expiry of the mirrored snapshot in seconds")

	return flags
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("bind", DefaultBind)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("http_timeout", DefaultHTTPTimeout)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("namespace", DefaultNamespace)
	v.SetDefault("redis_key", DefaultRedisKey)
	v.SetDefault("redis_ttl", DefaultRedisTTL)
}

// Load reads configuration from flags (args, without the program name),
// environment, an optional TOML file and defaults, in that precedence.
func Load(args []string) (*Config, error) {
	errFactory := errors.New()

	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	for _, o := range options {
		if err := v.BindEnv(o.key, o.env); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
		if err := v.BindPFlag(o.key, flags.Lookup(o.flag)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	if err := readConfigFile(v, flags); err != nil {
		return nil, err
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	config.Hosts = splitList(config.Hosts, false)
	config.Names = splitList(config.Names, true)
	config.LogLevel = strings.ToLower(config.LogLevel)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func readConfigFile(v *viper.Viper, flags *pflag.FlagSet) error {
	errFactory := errors.New()

	path, _ := flags.GetString("config")
	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG")
	}

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if len(c.Hosts) == 0 {
		return errFactory.New(errors.ErrMissingConfig).
			WithMessage("at least one device host is required (--hosts or APOLLO_HOSTS)")
	}
	if c.PollInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.PollInterval)
	}
	if c.HTTPTimeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidTimeout, c.HTTPTimeout)
	}
	if c.Port < 1 || c.Port > 65535 {
		return errFactory.WithData(errors.ErrInvalidPort, c.Port)
	}
	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

// MetricsBindAddress returns the listen address of the scrape server.
func (c *Config) MetricsBindAddress() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

func (c *Config) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

func (c *Config) HTTPTimeoutDuration() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

func (c *Config) RedisTTLDuration() time.Duration {
	return time.Duration(c.RedisTTL) * time.Second
}

// Devices pairs every host with its display name. Hosts without a
// configured name are named after their address.
func (c *Config) Devices() []Device {
	devices := make([]Device, 0, len(c.Hosts))
	for i, host := range c.Hosts {
		name := ""
		if i < len(c.Names) {
			name = c.Names[i]
		}
		if name == "" {
			name = deviceNameFromURL(host)
		}
		devices = append(devices, Device{Host: host, Name: name})
	}

	return devices
}

func deviceNameFromURL(url string) string {
	name := strings.TrimPrefix(url, "http://")
	name = strings.TrimPrefix(name, "https://")
	if i := strings.IndexAny(name, ":/"); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "unknown"
	}

	return name
}

// splitList flattens comma-separated entries. Blank entries are kept only
// when keepBlank is set, so positional name lists stay aligned with hosts.
func splitList(in []string, keepBlank bool) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part != "" || keepBlank {
				out = append(out, part)
			}
		}
	}

	return out
}
