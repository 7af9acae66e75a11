package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sblinch/kdl-go"
	"github.com/ykhdr/crackserver/internal/amqp"
	"github.com/ykhdr/crackserver/internal/consul"
	"github.com/ykhdr/crackserver/internal/logging"
)

const (
	DefaultDictionary    = "/usr/share/dict/words"
	DefaultMaxLineLength = 64 * 1024

	minPort = 1024
	maxPort = 65535
)

var ErrInvalid = errors.New("invalid configuration")

type LogConfig struct {
	LogLevel string `kdl:"log-level"`
}

func (c *LogConfig) GetLogLevel() string {
	return c.LogLevel
}

type CrackServerConfig struct {
	LogConfig
	// Port 0 lets the OS pick one.
	Port int `kdl:"port"`
	// MaxConnections 0 means unlimited.
	MaxConnections int           `kdl:"max-connections"`
	Dictionary     string        `kdl:"dictionary"`
	MaxLineLength  int           `kdl:"max-line-length"`
	CrackTimeout   time.Duration `kdl:"crack-timeout"`
	// ApiServerAddr enables the admin API when set.
	ApiServerAddr    string         `kdl:"api-server-addr"`
	AdvertiseAddress string         `kdl:"advertise-address"`
	ConsulConfig     *consul.Config `kdl:"consul"`
	AmqpConfig       *amqp.Config   `kdl:"amqp"`
}

func DefaultConfig() *CrackServerConfig {
	return &CrackServerConfig{
		LogConfig:     LogConfig{LogLevel: "info"},
		Dictionary:    DefaultDictionary,
		MaxLineLength: DefaultMaxLineLength,
	}
}

// InitializeConfig loads the KDL file at configPath over the defaults. An
// empty path skips the file entirely.
func InitializeConfig(configPath string) (*CrackServerConfig, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalid, "read %s: %v", configPath, err)
	}
	cfg, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", configPath)
	}
	return cfg, nil
}

// Decode parses a KDL document over the defaults. Nodes missing from the
// document keep their default values.
func Decode(data []byte) (*CrackServerConfig, error) {
	cfg := DefaultConfig()
	if err := kdl.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(ErrInvalid, "decode kdl: %v", err)
	}
	return cfg, nil
}

func (c *CrackServerConfig) Validate() error {
	if c.Port != 0 && (c.Port <= minPort || c.Port >= maxPort) {
		return errors.Wrapf(ErrInvalid, "port %d must be 0 or between %d and %d exclusive", c.Port, minPort, maxPort)
	}
	if c.MaxConnections < 0 {
		return errors.Wrapf(ErrInvalid, "max connections %d is negative", c.MaxConnections)
	}
	if c.Dictionary == "" {
		return errors.Wrap(ErrInvalid, "dictionary path is empty")
	}
	if c.MaxLineLength <= 0 {
		return errors.Wrapf(ErrInvalid, "max line length %d must be positive", c.MaxLineLength)
	}
	if c.CrackTimeout < 0 {
		return errors.Wrapf(ErrInvalid, "crack timeout %s is negative", c.CrackTimeout)
	}
	if c.AmqpConfig != nil {
		if err := c.AmqpConfig.Validate(); err != nil {
			return errors.Wrapf(ErrInvalid, "%v", err)
		}
	}
	return nil
}

func (c *CrackServerConfig) Level() logging.Level {
	return logging.ParseLevel(c.GetLogLevel())
}
