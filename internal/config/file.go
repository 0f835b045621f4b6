package config

import (
	"os"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ryandielhenn/fencer/pkg/state"
)

type fileConfig struct {
	BindInterface string   `yaml:"bind-interface"`
	BindPort      int      `yaml:"bind-port"`
	AdvertiseAddr string   `yaml:"advertise-addr"`
	Seeds         []string `yaml:"seeds"`
	LoopRate      int      `yaml:"loop-rate"`
	ProbeTimeout  string   `yaml:"probe-timeout"`
	PullTimeout   string   `yaml:"pull-timeout"`
	LogLevel      string   `yaml:"log-level"`
	LogFormat     string   `yaml:"log-format"`
	Etcd          struct {
		Endpoints []string `yaml:"endpoints"`
		Prefix    string   `yaml:"prefix"`
		TTL       int64    `yaml:"ttl"`
	} `yaml:"etcd"`
	OnLeaderChange string `yaml:"on-leader-change"`
}

var envVarPattern = regexp.MustCompile(`\${([^}]+)}`)

// expandEnvStrict replaces ${VAR} references and fails on unset variables.
func expandEnvStrict(s string, lookup func(string) (string, bool)) (string, error) {
	for _, m := range envVarPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := lookup(m[1]); !ok {
			return "", errors.Errorf("environment variable %s is not set", m[1])
		}
	}
	return os.Expand(s, func(name string) string {
		v, _ := lookup(name)
		return v
	}), nil
}

func applyFile(cfg *Config, path string, lookup func(string) (string, bool)) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	expanded, err := expandEnvStrict(string(raw), lookup)
	if err != nil {
		return errors.Wrapf(err, "expand config %s", path)
	}

	var fc fileConfig
	if err := yaml.Unmarshal([]byte(expanded), &fc); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}

	if fc.BindInterface != "" {
		cfg.BindInterface = fc.BindInterface
	}
	if fc.BindPort != 0 {
		cfg.BindPort = fc.BindPort
	}
	if fc.AdvertiseAddr != "" {
		cfg.AdvertiseAddr = state.NormalizeAddress(fc.AdvertiseAddr, state.DefaultPort)
	}
	if len(fc.Seeds) > 0 {
		cfg.Seeds = nil
		seen := map[state.Address]bool{}
		for _, s := range fc.Seeds {
			a := state.NormalizeAddress(s, state.DefaultPort)
			if a == "" || seen[a] {
				continue
			}
			seen[a] = true
			cfg.Seeds = append(cfg.Seeds, a)
		}
	}
	if fc.LoopRate != 0 {
		cfg.LoopRate = time.Duration(fc.LoopRate) * time.Second
	}
	if fc.ProbeTimeout != "" {
		if cfg.ProbeTimeout, err = time.ParseDuration(fc.ProbeTimeout); err != nil {
			return errors.Wrap(err, "probe-timeout")
		}
	}
	if fc.PullTimeout != "" {
		if cfg.PullTimeout, err = time.ParseDuration(fc.PullTimeout); err != nil {
			return errors.Wrap(err, "pull-timeout")
		}
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		cfg.LogFormat = fc.LogFormat
	}
	if len(fc.Etcd.Endpoints) > 0 {
		cfg.EtcdEndpoints = fc.Etcd.Endpoints
	}
	if fc.Etcd.Prefix != "" {
		cfg.EtcdPrefix = fc.Etcd.Prefix
	}
	if fc.Etcd.TTL != 0 {
		cfg.EtcdTTL = fc.Etcd.TTL
	}
	if fc.OnLeaderChange != "" {
		cfg.HookCommand = fc.OnLeaderChange
	}
	return nil
}
