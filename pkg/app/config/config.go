package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"bpcd/pkg/bpc"
	"bpcd/pkg/raspberry"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Link       LinkConfig      `yaml:"link"`
	Decoder    DecoderConfig   `yaml:"decoder"`
	TimeZone   int             `yaml:"timezone"`
	TimeFormat string          `yaml:"timeformat"`
	Flag       FlagConfig      `yaml:"-"`
	Debug      DebugConfig     `yaml:"debug"`
	Webserver  WebserverConfig `yaml:"webserver"`
	MQTT       MQTTConfig      `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	Version    bool
	Debug      string
	ConfigFile string
}

// LinkConfig defines the gpio line the receiver module is connected to
type LinkConfig struct {
	Backend    string `yaml:"backend"`
	Chip       string `yaml:"chip"`
	Gpio       int    `yaml:"gpio"`
	Terminator string `yaml:"terminator"`
	// Delay is the settle time after the line is requested in ms
	Delay uint32 `yaml:"delay"`
}

// DecoderConfig defines the pulse classifier thresholds in ms
type DecoderConfig struct {
	MaxRangeInt      int           `yaml:"maxrange"`
	MaxRange         time.Duration `yaml:"-"`
	SpaceRangeInt    int           `yaml:"spacerange"`
	SpaceRange       time.Duration `yaml:"-"`
	MaxStartRangeInt int           `yaml:"maxstartrange"`
	MaxStartRange    time.Duration `yaml:"-"`
	Tolerance        float64       `yaml:"tolerance"`
	InvalidLimit     int           `yaml:"invalidlimit"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection     string `yaml:"connection"`
	Topic          string `yaml:"topic"`
	PublishInvalid bool   `yaml:"publishinvalid"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	t := bpc.DefaultThresholds()

	return &Config{
		Link: LinkConfig{
			Backend:    raspberry.BackendCdev,
			Chip:       "gpiochip0",
			Gpio:       17,
			Terminator: "none",
			Delay:      bpc.DefaultLinkDelay,
		},
		Decoder: DecoderConfig{
			MaxRangeInt:      int(t.MaxRange / time.Millisecond),
			SpaceRangeInt:    int(t.SpaceRange / time.Millisecond),
			MaxStartRangeInt: int(t.MaxStartRange / time.Millisecond),
			Tolerance:        t.Tolerance,
			InvalidLimit:     bpc.DefaultInvalidLimit,
		},
		TimeZone:   8,
		TimeFormat: "%Y-%m-%d %H:%M:%S",
		Flag:       FlagConfig{},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"data":    true,
				"status":  true,
				"metrics": true,
			},
		},
		MQTT: MQTTConfig{
			Connection: "",
			Topic:      "/bpc/time",
		},
	}
}

func (c *Config) LoadConfig() error {
	if c.Flag.ConfigFile != "" {
		if err := c.readConfigFile(); err != nil {
			return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
		}
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	c.Decoder.MaxRange = time.Duration(c.Decoder.MaxRangeInt) * time.Millisecond
	c.Decoder.SpaceRange = time.Duration(c.Decoder.SpaceRangeInt) * time.Millisecond
	c.Decoder.MaxStartRange = time.Duration(c.Decoder.MaxStartRangeInt) * time.Millisecond

	if c.TimeZone < -12 || c.TimeZone > 14 {
		return fmt.Errorf("invalid timezone %v", c.TimeZone)
	}

	return nil
}

// Bpc returns the decoder configuration.
func (c *Config) Bpc() bpc.Config {
	return bpc.Config{
		Thresholds: bpc.Thresholds{
			MaxRange:      c.Decoder.MaxRange,
			SpaceRange:    c.Decoder.SpaceRange,
			MaxStartRange: c.Decoder.MaxStartRange,
			Tolerance:     c.Decoder.Tolerance,
		},
		InvalidLimit: c.Decoder.InvalidLimit,
		LinkDelay:    c.Link.Delay,
	}
}

// Raspberry returns the options of the gpio link.
func (c *Config) Raspberry() raspberry.Options {
	return raspberry.Options{
		Backend:    c.Link.Backend,
		Chip:       c.Link.Chip,
		Gpio:       c.Link.Gpio,
		Terminator: c.Link.Terminator,
		Zone:       c.TimeZone,
	}
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	return nil
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Debug.FlagString {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Debug.Flag = debug.Standard
	default:
		return fmt.Errorf("unknown debug flag %q", c.Debug.FlagString)
	}

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
