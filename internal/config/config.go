package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ryandielhenn/fencer/pkg/state"
)

var (
	ErrMissingAdvertise = errors.New("advertise address is required")
	ErrMissingSeeds     = errors.New("at least one seed (or an etcd endpoint) is required")
)

type Config struct {
	BindInterface string
	BindPort      int
	AdvertiseAddr state.Address
	Seeds         []state.Address
	LoopRate      time.Duration
	ProbeTimeout  time.Duration
	PullTimeout   time.Duration

	LogLevel  string
	LogFormat string

	EtcdEndpoints []string
	EtcdPrefix    string
	EtcdTTL       int64

	// HookCommand is run through sh -c on every leader change.
	HookCommand string
}

func Default() *Config {
	return &Config{
		BindInterface: "0.0.0.0",
		BindPort:      4000,
		LoopRate:      5 * time.Second,
		ProbeTimeout:  1 * time.Second,
		PullTimeout:   3 * time.Second,
		LogLevel:      "info",
		LogFormat:     "console",
		EtcdPrefix:    "/fencer/nodes/",
		EtcdTTL:       10,
	}
}

// BindAddr is the listen address for the HTTP server.
func (c *Config) BindAddr() string {
	return net.JoinHostPort(c.BindInterface, strconv.Itoa(c.BindPort))
}

func (c *Config) Validate() error {
	if c.AdvertiseAddr == "" {
		return ErrMissingAdvertise
	}
	if len(c.Seeds) == 0 && len(c.EtcdEndpoints) == 0 {
		return ErrMissingSeeds
	}
	if c.BindPort <= 0 || c.BindPort > 65535 {
		return errors.Errorf("bind port %d out of range", c.BindPort)
	}
	if c.LoopRate <= 0 {
		return errors.Errorf("loop rate must be positive, got %s", c.LoopRate)
	}
	return nil
}

// Load reads configuration from, in increasing precedence: defaults, the YAML
// file named by --config or FENCER_CONFIG, environment variables, flags.
func Load(args []string) (*Config, error) {
	return load(args, os.LookupEnv)
}

func load(args []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("fencer", flag.ContinueOnError)
	var (
		configPath    = fs.String("config", "", "YAML config file. Env: FENCER_CONFIG")
		bindInterface = fs.String("bind-interface", cfg.BindInterface, "Network interface to bind to.")
		bindPort      = fs.Int("bind-port", cfg.BindPort, "Port to bind to.")
		advertise     = fs.String("advertise-addr", "", "Cluster facing addr. Ex: 4.4.4.4:1337")
		seeds         = fs.String("seeds", "", "Comma separated list of seeds. Ex: 1.1.1.1:1337,2.2.2.2:1337")
		loopRate      = fs.Int("loop-rate", int(cfg.LoopRate/time.Second), "Seconds between gossip rounds.")
		probeTimeout  = fs.Duration("probe-timeout", cfg.ProbeTimeout, "Timeout for liveness probes.")
		pullTimeout   = fs.Duration("pull-timeout", cfg.PullTimeout, "Timeout for state pulls.")
		logLevel      = fs.String("log-level", cfg.LogLevel, "debug, info, warn or error.")
		logFormat     = fs.String("log-format", cfg.LogFormat, "console or json.")
		etcdEndpoints = fs.String("etcd-endpoints", "", "Comma separated etcd endpoints used as an extra seed source.")
		etcdPrefix    = fs.String("etcd-prefix", cfg.EtcdPrefix, "Key prefix for node registration.")
		etcdTTL       = fs.Int64("etcd-ttl", cfg.EtcdTTL, "Registration lease TTL in seconds.")
		hookCommand   = fs.String("on-leader-change", "", "Shell command run whenever the leader changes.")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	path := *configPath
	if path == "" {
		path, _ = lookup("FENCER_CONFIG")
	}
	if path != "" {
		if err := applyFile(cfg, path, lookup); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "bind-interface":
			cfg.BindInterface = *bindInterface
		case "bind-port":
			cfg.BindPort = *bindPort
		case "advertise-addr":
			cfg.AdvertiseAddr = state.NormalizeAddress(*advertise, state.DefaultPort)
		case "seeds":
			cfg.Seeds = state.ParseAddressList(*seeds, state.DefaultPort)
		case "loop-rate":
			cfg.LoopRate = time.Duration(*loopRate) * time.Second
		case "probe-timeout":
			cfg.ProbeTimeout = *probeTimeout
		case "pull-timeout":
			cfg.PullTimeout = *pullTimeout
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		case "etcd-endpoints":
			cfg.EtcdEndpoints = splitList(*etcdEndpoints)
		case "etcd-prefix":
			cfg.EtcdPrefix = *etcdPrefix
		case "etcd-ttl":
			cfg.EtcdTTL = *etcdTTL
		case "on-leader-change":
			cfg.HookCommand = *hookCommand
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("BIND_INTERFACE"); ok && v != "" {
		cfg.BindInterface = v
	}
	if v, ok := lookup("BIND_PORT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "BIND_PORT")
		}
		cfg.BindPort = n
	}
	if v, ok := lookup("SELF_ADDR"); ok && v != "" {
		cfg.AdvertiseAddr = state.NormalizeAddress(v, state.DefaultPort)
	}
	if v, ok := lookup("SEEDS"); ok && v != "" {
		cfg.Seeds = state.ParseAddressList(v, state.DefaultPort)
	}
	if v, ok := lookup("LOOP_RATE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "LOOP_RATE")
		}
		cfg.LoopRate = time.Duration(n) * time.Second
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok && v != "" {
		cfg.LogFormat = v
	}
	if v, ok := lookup("ETCD_ENDPOINTS"); ok && v != "" {
		cfg.EtcdEndpoints = splitList(v)
	}
	if v, ok := lookup("ON_LEADER_CHANGE"); ok && v != "" {
		cfg.HookCommand = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
