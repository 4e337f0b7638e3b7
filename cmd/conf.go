package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/wlanlink/wlanlink/api"
	"github.com/wlanlink/wlanlink/nl80211"
	"github.com/wlanlink/wlanlink/wifi"
)

type Config struct {
	Netlink *nl80211.Config `yaml:"netlink"`
	Api     *api.Config     `yaml:"api"`

	Monitor *struct {
		Groups []string `yaml:"groups"`
	} `yaml:"monitor"`
}

func (c Config) String() string {
	m, err := yaml.MarshalWithOptions(c, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return "marshalling error..."
	}
	return string(m)
}

// netlink, api and monitorGroups paper over absent sections by handing
// back the package defaults.
func (c *Config) netlink() nl80211.Config {
	if c.Netlink == nil {
		return nl80211.DefaultConfig
	}
	return *c.Netlink
}

func (c *Config) api() api.Config {
	if c.Api == nil {
		return api.DefaultConfig
	}
	return *c.Api
}

func (c *Config) monitorGroups() []string {
	if c.Monitor == nil {
		return nil
	}
	return c.Monitor.Groups
}

func ReadConf(path string) (*Config, error) {
	r, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading the configuration file: %w", err)
	}

	conf := Config{}
	if err := yaml.Unmarshal(r, &conf); err != nil {
		return nil, fmt.Errorf("error unmarshaling the configuration: %w", err)
	}

	return &conf, nil
}

// getConf loads the configuration file the --conf flag points to. A
// missing file is fine, the defaults simply kick in; a broken one isn't.
func getConf() *Config {
	conf, err := ReadConf(confFilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("no configuration file, running on defaults", "path", confFilePath)
			return &Config{}
		}
		fmt.Printf("error loading the configuration: %v\n", err)
		os.Exit(-1)
	}
	return conf
}

// newClient dials NETLINK_GENERIC, resolves the family and hands back a
// ready client together with the proxy's cleanup function.
func newClient() (*wifi.Client, func(), error) {
	netlinkConf := getConf().netlink()
	proxy := nl80211.NewProxy(&netlinkConf)
	if err := proxy.Init(); err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := proxy.Close(); err != nil {
			slog.Error("error closing the nl80211 proxy", "err", err)
		}
	}
	return wifi.NewClient(proxy), cleanup, nil
}
