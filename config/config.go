// Package config builds the immutable PollingConfig from defaults, an
// optional YAML file and the command line, in that order of precedence.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mascanio/pool-metrics/metrics"
	"github.com/mascanio/pool-metrics/providers/w1"
	"github.com/mascanio/pool-metrics/sinks/initialstate"
	"github.com/mascanio/pool-metrics/sinks/kafka"
	"github.com/mascanio/pool-metrics/sinks/mqtt"
	"github.com/mascanio/pool-metrics/sinks/redis"
	"gopkg.in/yaml.v3"
)

// ErrStartup marks configuration faults that must stop the program before
// the first poll cycle.
var ErrStartup = errors.New("startup fault")

const (
	DefaultDelay = 120
	// FreeTierMinDelay is the smallest delay the Initial State free plan
	// tolerates without throttling.
	FreeTierMinDelay = 105
	EnvAccessKey     = "IS_ACCESS_KEY"
)

const (
	SinkInitialState = "initialstate"
	SinkMQTT         = "mqtt"
	SinkKafka        = "kafka"
	SinkRedis        = "redis"
	SinkGauge        = "gauge"
)

var apiKeyRe = regexp.MustCompile(`^[a-zA-Z0-9]{32}`)

type PollingConfig struct {
	APIKey    string       `yaml:"api_key"`
	Sensor    string       `yaml:"sensor"`
	Bucket    string       `yaml:"bucket"`
	BucketKey string       `yaml:"bucket_key"`
	Delay     int          `yaml:"delay"`
	Unit      metrics.Unit `yaml:"unit"`
	Verbose   bool         `yaml:"verbose"`
	LogFormat string       `yaml:"log_format"`
	BaseDir   string       `yaml:"base_dir"`
	Sinks     []string     `yaml:"sinks"`
	Buffer    int          `yaml:"buffer"`
	Listen    string       `yaml:"listen"`
	Modprobe  bool         `yaml:"modprobe"`

	InitialState initialstate.Config `yaml:"initialstate"`
	MQTT         mqtt.Config         `yaml:"mqtt"`
	Kafka        kafka.Config        `yaml:"kafka"`
	Redis        redis.Config        `yaml:"redis"`
}

func Default() PollingConfig {
	return PollingConfig{
		Delay:     DefaultDelay,
		Unit:      metrics.Fahrenheit,
		LogFormat: "text",
		BaseDir:   w1.DefaultBaseDir,
		Sinks:     []string{SinkInitialState},
		Buffer:    1,
		InitialState: initialstate.Config{
			URL:     initialstate.DefaultURL,
			Timeout: 30 * time.Second,
		},
		MQTT: mqtt.Config{
			ClientID: "pool-metrics",
			Topic:    "w1",
			Timeout:  10 * time.Second,
		},
		Kafka: kafka.Config{
			Topic:   "w1.readings",
			Timeout: 10 * time.Second,
		},
		Redis: redis.Config{
			Addr:   "localhost:6379",
			Stream: "w1:readings",
		},
	}
}

func (c PollingConfig) Interval() time.Duration {
	return time.Duration(c.Delay) * time.Second
}

func (c PollingConfig) HasSink(name string) bool {
	for _, s := range c.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// InitialStateConfig returns the sink configuration with the credential and
// bucket taken from the top level.
func (c PollingConfig) InitialStateConfig() initialstate.Config {
	is := c.InitialState
	is.AccessKey = c.APIKey
	is.BucketName = c.Bucket
	is.BucketKey = c.BucketKey
	return is
}

// Load parses args (without the program name). Flags may appear before,
// between or after the positional apiKey, sensor and bucket. An apiKey of
// "-", or none at all, is read from IS_ACCESS_KEY through getenv.
func Load(args []string, getenv func(string) string) (PollingConfig, error) {
	cfg := Default()
	fs, path := newFlagSet(&cfg)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return cfg, err
	}
	if *path != "" {
		cfg = Default()
		if err := loadFile(*path, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrStartup, err)
		}
		fs, _ = newFlagSet(&cfg)
		if pos, err = parseArgs(fs, args); err != nil {
			return cfg, err
		}
	}

	switch len(pos) {
	case 0:
	case 3:
		cfg.APIKey, cfg.Sensor, cfg.Bucket = pos[0], pos[1], pos[2]
	default:
		return cfg, fmt.Errorf("%w: expected positional arguments apiKey sensor bucket, got %d", ErrStartup, len(pos))
	}
	if cfg.APIKey == "" || cfg.APIKey == "-" {
		cfg.APIKey = getenv(EnvAccessKey)
	}
	return cfg, cfg.Validate()
}

func (c PollingConfig) Validate() error {
	if c.Sensor == "" {
		return startupf("sensor is required")
	}
	if c.Delay < 1 {
		return startupf("delay must be at least 1 second, got %d", c.Delay)
	}
	if !c.Unit.Valid() {
		return startupf("unit must be C or F, got %q", c.Unit)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return startupf("log format must be text or json, got %q", c.LogFormat)
	}
	if c.Buffer < 1 {
		return startupf("buffer must be at least 1, got %d", c.Buffer)
	}
	if len(c.Sinks) == 0 {
		return startupf("at least one sink is required")
	}
	seen := make(map[string]bool, len(c.Sinks))
	for _, s := range c.Sinks {
		if seen[s] {
			return startupf("sink %q listed more than once", s)
		}
		seen[s] = true
		switch s {
		case SinkInitialState:
			if c.APIKey == "" {
				return startupf("APIKey required")
			}
			if !apiKeyRe.MatchString(c.APIKey) {
				return startupf("invalid APIKey format")
			}
			if c.Bucket == "" {
				return startupf("bucket is required")
			}
		case SinkMQTT:
			if c.MQTT.Broker == "" {
				return startupf("mqtt broker is required")
			}
		case SinkKafka:
			if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
				return startupf("kafka brokers and topic are required")
			}
		case SinkRedis:
			if c.Redis.Addr == "" || c.Redis.Stream == "" {
				return startupf("redis addr and stream are required")
			}
		case SinkGauge:
			if c.Listen == "" {
				return startupf("the gauge sink needs --listen to be scraped")
			}
		default:
			return startupf("unknown sink %q", s)
		}
	}
	return nil
}

// Warnings lists settings that are accepted but likely wrong.
func (c PollingConfig) Warnings() []string {
	var w []string
	if c.HasSink(SinkInitialState) && c.Delay < FreeTierMinDelay {
		w = append(w, fmt.Sprintf("delay of %ds is below %ds, free Initial State accounts will be throttled", c.Delay, FreeTierMinDelay))
	}
	return w
}

func startupf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrStartup, fmt.Sprintf(format, args...))
}

func loadFile(path string, cfg *PollingConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// parseArgs collects positionals while letting flags follow them. -h is
// returned as flag.ErrHelp, other flag errors as startup faults.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrStartup, err)
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

type listValue struct {
	p *[]string
}

func (l listValue) String() string {
	if l.p == nil {
		return ""
	}
	return strings.Join(*l.p, ",")
}

func (l listValue) Set(v string) error {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*l.p = out
	return nil
}

func newFlagSet(cfg *PollingConfig) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet("pool-metrics", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Send 1-Wire temperature readings to Initial State and friends.\n\n")
		fmt.Fprintf(fs.Output(), "usage: pool-metrics [flags] apiKey sensor bucket\n\n")
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), "\nexample: pool-metrics -v AAaAaaaaaAaaAaAaaAA1AaAAaa1aaAaA 28-0000066f9276 'Pool Temperature' -k poolkey\n")
	}

	path := fs.String("config", "", "YAML configuration `file`")
	for _, n := range []string{"k", "bucket-key"} {
		fs.StringVar(&cfg.BucketKey, n, cfg.BucketKey, "Initial State bucket key")
	}
	for _, n := range []string{"d", "delay"} {
		fs.IntVar(&cfg.Delay, n, cfg.Delay, "delay between sensor reads in `seconds`, >104 for free Initial State accounts")
	}
	for _, n := range []string{"c", "celsius"} {
		fs.BoolFunc(n, "use Celsius instead of Fahrenheit", func(s string) error {
			on, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			cfg.Unit = metrics.Fahrenheit
			if on {
				cfg.Unit = metrics.Celsius
			}
			return nil
		})
	}
	for _, n := range []string{"v", "verbose"} {
		fs.BoolVar(&cfg.Verbose, n, cfg.Verbose, "increase output verbosity")
	}
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log output format, text or json")
	fs.StringVar(&cfg.BaseDir, "base-dir", cfg.BaseDir, "directory holding the w1 sensor directories")
	fs.Var(listValue{&cfg.Sinks}, "sink", "comma separated sinks: initialstate, mqtt, kafka, redis, gauge")
	fs.IntVar(&cfg.Buffer, "buffer", cfg.Buffer, "events queued before a batch is shipped")
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "`addr` for /metrics, /healthz and /status, disabled if empty")
	fs.BoolVar(&cfg.Modprobe, "modprobe", cfg.Modprobe, "load w1-gpio and w1-therm before starting")

	fs.StringVar(&cfg.InitialState.URL, "is-url", cfg.InitialState.URL, "Initial State API base URL")
	fs.StringVar(&cfg.MQTT.Broker, "mqtt-broker", cfg.MQTT.Broker, "MQTT broker `url`, e.g. tcp://localhost:1883")
	fs.StringVar(&cfg.MQTT.Topic, "mqtt-topic", cfg.MQTT.Topic, "MQTT topic prefix")
	fs.StringVar(&cfg.MQTT.ClientID, "mqtt-client-id", cfg.MQTT.ClientID, "MQTT client id")
	fs.StringVar(&cfg.MQTT.Username, "mqtt-username", cfg.MQTT.Username, "MQTT username")
	fs.StringVar(&cfg.MQTT.Password, "mqtt-password", cfg.MQTT.Password, "MQTT password")
	fs.Var(listValue{&cfg.Kafka.Brokers}, "kafka-brokers", "comma separated Kafka brokers")
	fs.StringVar(&cfg.Kafka.Topic, "kafka-topic", cfg.Kafka.Topic, "Kafka topic")
	fs.StringVar(&cfg.Redis.Addr, "redis-addr", cfg.Redis.Addr, "Redis address")
	fs.StringVar(&cfg.Redis.Password, "redis-password", cfg.Redis.Password, "Redis password")
	fs.IntVar(&cfg.Redis.DB, "redis-db", cfg.Redis.DB, "Redis database")
	fs.StringVar(&cfg.Redis.Stream, "redis-stream", cfg.Redis.Stream, "Redis stream key")
	fs.Int64Var(&cfg.Redis.MaxLen, "redis-maxlen", cfg.Redis.MaxLen, "approximate cap of the Redis stream, 0 for none")
	return fs, path
}
