package cli

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
)

type HoverConfig struct {
	// Hit tolerance for react events and user timing marks.
	Radius model.Milliseconds `yaml:"radius"`
}

type Config struct {
	LogLevel string        `yaml:"log_level"`
	Timeout  time.Duration `yaml:"timeout"`
	// Trace file compression used when a command does not override it.
	Compression string `yaml:"compression"`
	// Flamechart frames deeper than this are dropped on build. Zero keeps all.
	FrameDepthLimit int `yaml:"frame_depth_limit"`
	// Number of files validated concurrently.
	Parallelism int         `yaml:"parallelism"`
	Hover       HoverConfig `yaml:"hover"`
}

func (c *Config) FillDefault() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Timeout == time.Duration(0) {
		c.Timeout = time.Minute
	}
	if c.Compression == "" {
		c.Compression = "none"
	}
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.GOMAXPROCS(0)
	}
}

func ParseConfig(path string, strict bool) (conf *Config, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	conf = &Config{}
	dec := yaml.NewDecoder(file)
	dec.KnownFields(strict)
	if err := dec.Decode(conf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return conf, nil
}
