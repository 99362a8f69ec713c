package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Pablu23/Rudp/internal/common"
	"github.com/Pablu23/Rudp/internal/session"
)

// DefaultTransferSize is the payload size of one run, 2 MiB.
const DefaultTransferSize = 2 << 20

// Config describes the configuration file of the rudp harness.
type Config struct {
	Logging  LogConf      `toml:"logging" yaml:"logging"`
	Protocol ProtocolConf `toml:"protocol" yaml:"protocol"`
	Receiver ReceiverConf `toml:"receiver" yaml:"receiver"`
	Sender   SenderConf   `toml:"sender" yaml:"sender"`
	Stream   StreamConf   `toml:"stream" yaml:"stream"`
}

// LogConf describes the logging block.
type LogConf struct {
	Level        string `toml:"level" yaml:"level"`
	ReportCaller bool   `toml:"report-caller" yaml:"report-caller"`
	Format       string `toml:"format" yaml:"format"`
}

// ProtocolConf holds the settings both peers have to agree on, plus the
// session timeouts. Unset timeouts keep the session defaults.
type ProtocolConf struct {
	SegmentSize      int      `toml:"segment-size" yaml:"segment-size"`
	TransferSize     int      `toml:"transfer-size" yaml:"transfer-size"`
	HandshakeTimeout Duration `toml:"handshake-timeout" yaml:"handshake-timeout"`
	EndSignalTimeout Duration `toml:"end-signal-timeout" yaml:"end-signal-timeout"`
	AckTimeout       Duration `toml:"ack-timeout" yaml:"ack-timeout"`
	ReuseAddr        *bool    `toml:"reuse-addr" yaml:"reuse-addr"`
}

// ReceiverConf describes the receiver block. With Runs set to zero the
// receiver keeps receiving until the sender ends the session.
type ReceiverConf struct {
	Port int `toml:"port" yaml:"port"`
	Runs int `toml:"runs" yaml:"runs"`
}

// SenderConf describes the sender block. With Runs set to zero the sender asks
// after every run whether to send again.
type SenderConf struct {
	Address string `toml:"address" yaml:"address"`
	Port    int    `toml:"port" yaml:"port"`
	Runs    int    `toml:"runs" yaml:"runs"`
}

// StreamConf describes the TCP comparison.
type StreamConf struct {
	Address    string `toml:"address" yaml:"address"`
	Port       int    `toml:"port" yaml:"port"`
	Congestion string `toml:"congestion" yaml:"congestion"`
}

// Duration is a time.Duration written as a string like "5s" or "250ms".
type Duration struct {
	time.Duration
	set bool
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	d.set = true
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// IsSet reports whether the duration was present in the configuration.
func (d Duration) IsSet() bool {
	return d.set
}

func Default() *Config {
	return &Config{
		Protocol: ProtocolConf{
			SegmentSize:  common.DefaultSegmentSize,
			TransferSize: DefaultTransferSize,
		},
		Receiver: ReceiverConf{
			Port: 9000,
		},
		Sender: SenderConf{
			Address: "127.0.0.1",
			Port:    9000,
		},
		Stream: StreamConf{
			Address: "127.0.0.1",
			Port:    9001,
		},
	}
}

// Load reads filename as TOML or YAML, depending on its extension, on top of
// the defaults and validates the result.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".toml":
		return Parse(data, "toml")
	case ".yaml", ".yml":
		return Parse(data, "yaml")
	default:
		return nil, fmt.Errorf("unknown configuration format \"%s\"", ext)
	}
}

func Parse(data []byte, format string) (*Config, error) {
	conf := Default()

	var err error
	switch format {
	case "toml":
		_, err = toml.Decode(string(data), conf)
	case "yaml":
		err = yaml.Unmarshal(data, conf)
	default:
		err = fmt.Errorf("unknown configuration format \"%s\"", format)
	}
	if err != nil {
		return nil, err
	}

	if err := conf.checkValid(); err != nil {
		return nil, err
	}
	return conf, nil
}

func checkPort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s %d out of range 1..65535", name, port)
	}
	return nil
}

func (c *Config) checkValid() (errs error) {
	if c.Logging.Level != "" {
		if _, err := log.ParseLevel(c.Logging.Level); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown logging.format \"%s\"", c.Logging.Format))
	}

	if c.Protocol.SegmentSize <= 0 || c.Protocol.SegmentSize > common.MaxSegmentSize {
		errs = multierror.Append(errs,
			fmt.Errorf("protocol.segment-size %d out of range 1..%d", c.Protocol.SegmentSize, common.MaxSegmentSize))
	}
	if c.Protocol.TransferSize <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("protocol.transfer-size must be positive"))
	}
	for name, d := range map[string]Duration{
		"protocol.handshake-timeout":  c.Protocol.HandshakeTimeout,
		"protocol.end-signal-timeout": c.Protocol.EndSignalTimeout,
		"protocol.ack-timeout":        c.Protocol.AckTimeout,
	} {
		if d.Duration < 0 {
			errs = multierror.Append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}

	if err := checkPort("receiver.port", c.Receiver.Port); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := checkPort("sender.port", c.Sender.Port); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := checkPort("stream.port", c.Stream.Port); err != nil {
		errs = multierror.Append(errs, err)
	}
	if c.Receiver.Runs < 0 || c.Sender.Runs < 0 {
		errs = multierror.Append(errs, fmt.Errorf("runs must not be negative"))
	}
	if c.Sender.Address == "" {
		errs = multierror.Append(errs, fmt.Errorf("sender.address is empty"))
	}
	if c.Stream.Address == "" {
		errs = multierror.Append(errs, fmt.Errorf("stream.address is empty"))
	}

	return
}

// SessionOptions translates the protocol block into session options.
func (c *Config) SessionOptions() []func(*session.Options) {
	opts := []func(*session.Options){
		session.WithSegmentSize(c.Protocol.SegmentSize),
	}

	if c.Protocol.HandshakeTimeout.IsSet() {
		opts = append(opts, session.WithHandshakeTimeout(c.Protocol.HandshakeTimeout.Duration))
	}
	if c.Protocol.EndSignalTimeout.IsSet() {
		opts = append(opts, session.WithEndSignalTimeout(c.Protocol.EndSignalTimeout.Duration))
	}
	if c.Protocol.AckTimeout.IsSet() {
		opts = append(opts, session.WithAckTimeout(c.Protocol.AckTimeout.Duration))
	}
	if c.Protocol.ReuseAddr != nil {
		reuse := *c.Protocol.ReuseAddr
		opts = append(opts, func(o *session.Options) {
			o.ReuseAddr = reuse
		})
	}

	return opts
}

// SetupLogging applies the logging block to the global logger.
func (c LogConf) SetupLogging() {
	if c.Level != "" {
		if lvl, err := log.ParseLevel(c.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    c.Level,
				"error":    err,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(c.ReportCaller)

	switch c.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			ForceColors:     true,
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.Warn("Unknown logging format")
	}
}
