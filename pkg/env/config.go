// Package env provides common configuration of UM7 driver commands.
package env

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/robotalks/um7.go/pkg/device"
	"github.com/robotalks/um7.go/pkg/mqtt"
	"github.com/robotalks/um7.go/pkg/telemetry"
	"github.com/robotalks/um7.go/pkg/transport"
)

// Config provides common options to set up a device and its telemetry.
type Config struct {
	// Name identifies the device in MQTT topics.
	Name        string
	Description string

	// PortURL specifies the transport, see transport.Open.
	// e.g. serial:///dev/ttyUSB0?baud=115200
	PortURL string

	// MQTTBrokerURL specifies the MQTT broker to use, empty to disable.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string

	// Interval is the minimum interval between telemetry samples.
	Interval time.Duration
}

var defaultConfig = Config{
	Description:   "UM7 orientation sensor",
	PortURL:       "/dev/ttyUSB0",
	MQTTBrokerURL: "mqtt://localhost:1883/robo/",
	Interval:      50 * time.Millisecond,
}

func init() {
	if val := os.Getenv("UM7_PORT_URL"); val != "" {
		defaultConfig.PortURL = val
	}
	if val, ok := os.LookupEnv("UM7_MQTT_URL"); ok {
		defaultConfig.MQTTBrokerURL = val
	}
	defaultConfig.Name = "um7/" + MachineID()
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Name, "name", defaultConfig.Name, "Device name used in topics")
	flag.StringVar(&defaultConfig.PortURL, "port", defaultConfig.PortURL, "Transport URL of the sensor")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Minimum interval between telemetry samples")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// OpenDevice opens the transport and wraps it as a Device. The returned
// closer closes the transport.
func (c *Config) OpenDevice() (*device.Device, io.Closer, error) {
	rwc, err := transport.Open(c.PortURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open transport %q error: %w", c.PortURL, err)
	}
	return device.New(rwc), rwc, nil
}

// MustOpenDevice opens the device and fails on error.
func (c *Config) MustOpenDevice() (*device.Device, io.Closer) {
	dev, closer, err := c.OpenDevice()
	if err != nil {
		log.Fatalln(err)
	}
	return dev, closer
}

// NewQueue creates the MQTT queue for the device. The retained meta
// document is cleared by the broker if the connection drops.
func (c *Config) NewQueue() (*mqtt.Queue, error) {
	if c.MQTTBrokerURL == "" {
		return nil, fmt.Errorf("MQTT broker URL is not configured")
	}
	opts, topicPrefix, err := mqtt.ClientOptionsFromURL(c.MQTTBrokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+telemetry.MetaTopic(c.Name), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("um7:" + c.Name)
	}
	return mqtt.NewQueue(opts, topicPrefix), nil
}

// NewPublisher creates a telemetry publisher on queue.
func (c *Config) NewPublisher(q *mqtt.Queue) *telemetry.Publisher {
	pub := telemetry.NewPublisher(q, c.Name, telemetry.Meta{
		Description: c.Description,
		Transport:   c.PortURL,
	})
	pub.Interval = c.Interval
	return pub
}
