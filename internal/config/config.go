// Package config loads the static cluster manifest: this replica's
// own id, its client/peer listen address, its peers' addresses, and
// the admin diagnostics address. Cluster membership is fixed at
// startup (spec.md §6); there is no dynamic membership change.
package config

import (
	"fmt"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Peer is one other member of the cluster.
type Peer struct {
	ID   string `yaml:"id" mapstructure:"id"`
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// Config is the full set of properties needed to start one replica.
type Config struct {
	ID         string `yaml:"id" mapstructure:"id"`
	ListenAddr string `yaml:"listenAddr" mapstructure:"listenAddr"`
	AdminAddr  string `yaml:"adminAddr" mapstructure:"adminAddr"`
	Peers      []Peer `yaml:"peers" mapstructure:"peers"`
}

// PeerAddrs returns the peer id -> address map the transport needs.
func (c Config) PeerAddrs() map[string]string {
	out := make(map[string]string, len(c.Peers))
	for _, p := range c.Peers {
		out[p.ID] = p.Addr
	}
	return out
}

// PeerIDs returns the list of peer ids, not including self.
func (c Config) PeerIDs() []string {
	out := make([]string, len(c.Peers))
	for i, p := range c.Peers {
		out[i] = p.ID
	}
	return out
}

// Validate checks that the manifest is complete enough to start.
func (c Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("config: id is required")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listenAddr is required")
	}
	for _, p := range c.Peers {
		if p.ID == "" || p.Addr == "" {
			return fmt.Errorf("config: peer entries require id and addr")
		}
	}
	return nil
}

// Load reads a manifest from manifestPath via viper and unmarshals it
// into a Config. RAFTKV_-prefixed environment variables override
// fields that the manifest sets; fields absent from the manifest are
// not read from the environment. An empty manifestPath returns the
// zero Config without consulting the environment.
func Load(manifestPath string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RAFTKV")
	v.AutomaticEnv()

	var cfg Config
	if manifestPath != "" {
		v.SetConfigFile(manifestPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", manifestPath, err)
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return Config{}, fmt.Errorf("config: unmarshal: %w", err)
		}
	}
	return cfg, nil
}

// LoadYAML parses raw YAML bytes directly into a Config, used by
// tests that don't want to touch the filesystem through viper.
func LoadYAML(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
