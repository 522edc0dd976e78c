package env

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/um7.go/pkg/telemetry"
)

func TestNewConfigCopiesDefault(t *testing.T) {
	conf := NewConfig()
	require.NotEmpty(t, conf.Name)
	conf.Name = "um7/test"
	require.NotEqual(t, "um7/test", Default().Name)
}

func TestNewQueue(t *testing.T) {
	conf := NewConfig()
	conf.Name = "um7/test"
	conf.MQTTBrokerURL = "mqtt://localhost:1883/robo/"
	q, err := conf.NewQueue()
	require.NoError(t, err)
	require.Equal(t, "robo/", q.TopicPrefix)

	conf.MQTTBrokerURL = ""
	_, err = conf.NewQueue()
	require.Error(t, err)
}

func TestNewPublisher(t *testing.T) {
	conf := NewConfig()
	conf.Name = "um7/test"
	conf.Interval = time.Second
	conf.MQTTBrokerURL = "mqtt://localhost:1883/"
	q, err := conf.NewQueue()
	require.NoError(t, err)
	pub := conf.NewPublisher(q)
	require.Equal(t, "um7/test", pub.Name)
	require.Equal(t, time.Second, pub.Interval)
	require.Equal(t, "um7/test/meta", telemetry.MetaTopic(pub.Name))
}

func TestOpenDevice(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	conf := NewConfig()
	conf.PortURL = "tcp://" + ln.Addr().String()
	dev, closer, err := conf.OpenDevice()
	require.NoError(t, err)
	require.NotNil(t, dev)
	require.NoError(t, closer.Close())

	conf.PortURL = "udp://" + ln.Addr().String()
	_, _, err = conf.OpenDevice()
	require.Error(t, err)
}
