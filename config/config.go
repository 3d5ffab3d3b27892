// Package config loads the optional YAML service configuration.
package config

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root of the configuration file.
type Config struct {
	Map           MapDefaults   `yaml:"map" json:"map"`
	Notifications Notifications `yaml:"notifications" json:"-"`
}

// MapDefaults is served to the front-end and seeds click resolution.
type MapDefaults struct {
	Zoom                float64    `yaml:"zoom" json:"zoom"`
	Center              [2]float64 `yaml:"center" json:"center"` // lon, lat
	ToleranceMultiplier float64    `yaml:"tolerance_multiplier,omitempty" json:"toleranceMultiplier"`
}

type Notifications struct {
	Webhooks []Webhook `yaml:"webhooks,omitempty"`
	AMQP     *AMQP     `yaml:"amqp,omitempty"`
}

type Webhook struct {
	Endpoint string `yaml:"endpoint"`
}

type AMQP struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Map: MapDefaults{
			Zoom:                12,
			Center:              [2]float64{-75.57612487383977, 6.244755019988588},
			ToleranceMultiplier: 2,
		},
	}
}

// Load reads and parses the YAML configuration file at path. Fields missing
// from the file keep their Default values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadConfiguration(f)
}

func LoadConfiguration(r io.Reader) (*Config, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
