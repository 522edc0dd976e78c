// Package sh provides an interactive console for a UM7.
package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/um7.go/pkg/comm"
	"github.com/robotalks/um7.go/pkg/device"
	"github.com/robotalks/um7.go/pkg/env"
	fx "github.com/robotalks/um7.go/pkg/framework"
	"github.com/robotalks/um7.go/pkg/transport"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	// ReplyTimeout bounds waiting for a sensor reply.
	ReplyTimeout time.Duration

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *Conn
}

// Conn is a device with its receive loop running in the background.
type Conn struct {
	PortURL string
	Device  *device.Device
	Cancel  func()
	Done    <-chan struct{}

	firmware chan struct{}
}

func newConn(name string, dev *device.Device) *Conn {
	conn := &Conn{PortURL: name, Device: dev, firmware: make(chan struct{}, 1)}
	dev.Store.AddNotifier(conn)
	return conn
}

// StateChanged implements device.StateNotifier.
func (c *Conn) StateChanged(_ context.Context, register byte, _ device.State) {
	if register != comm.RegFirmwareRevision {
		return
	}
	select {
	case c.firmware <- struct{}{}:
	default:
	}
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	evalOnly   bool
	outputJSON bool

	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&PortsCmd,
		&FirmwareCmd,
		&ZeroGyrosCmd,
		&ResetEKFCmd,
		&MagRefCmd,
		&StateCmd,
		&StatusCmd,
		&StatsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive:  !evalOnly,
		OutputJSON:   outputJSON,
		ReplyTimeout: time.Second,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context, dev *device.Device)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		conn := ShellFrom(c).Conn
		if conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c, conn.Device)
	}
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect opens the transport at portURL and starts receiving.
func (s *Shell) Connect(portURL string) error {
	conf := *s.Config
	conf.PortURL = portURL
	dev, closer, err := conf.OpenDevice()
	if err != nil {
		return err
	}
	s.Attach(portURL, dev, closer)
	return nil
}

// Attach runs the receive loop of an opened device.
func (s *Shell) Attach(name string, dev *device.Device, closer io.Closer) {
	s.Disconnect()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.Conn = newConn(name, dev)
	s.Conn.Cancel, s.Conn.Done = cancel, done
	go func() {
		defer close(done)
		err := fx.RunWithContextCloser(ctx, closer, func() error {
			return dev.Run(ctx)
		})
		if err != nil && err != context.Canceled {
			glog.Errorf("%s: %v", name, err)
		}
	}()
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", name))
}

// Disconnect stops the current connection.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Cancel()
		<-s.Conn.Done
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Output prints v as JSON or with the text formatter.
func (s *Shell) Output(c *ishell.Context, v interface{}, text func() string) {
	if !s.OutputJSON {
		c.Print(text())
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// WaitFirmware waits for a new firmware revision reported on conn.
func (s *Shell) WaitFirmware(conn *Conn) (string, error) {
	timeout := time.NewTimer(s.ReplyTimeout)
	defer timeout.Stop()
	for {
		if fw, ok := conn.Device.Store.TakeFirmware(); ok {
			return fw, nil
		}
		select {
		case <-conn.firmware:
		case <-timeout.C:
			return "", fmt.Errorf("firmware revision: no reply in %s", s.ReplyTimeout)
		}
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.PortURL != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.PortURL)
		}
		if err := s.Connect(s.Config.PortURL); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.PortURL, err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

func sendCmd(send func(*device.Device) error) func(c *ishell.Context) {
	return MustBeConnected(func(c *ishell.Context, dev *device.Device) {
		if err := send(dev); err != nil {
			c.Err(err)
			return
		}
		c.Println("OK")
	})
}

func formatState(st device.State) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "euler  roll=%8.3f pitch=%8.3f yaw=%8.3f\n", st.Roll, st.Pitch, st.Yaw)
	fmt.Fprintf(&w, "rates  roll=%8.3f pitch=%8.3f yaw=%8.3f\n", st.RollRate, st.PitchRate, st.YawRate)
	fmt.Fprintf(&w, "gyro   x=%8.3f y=%8.3f z=%8.3f\n", st.GyroX, st.GyroY, st.GyroZ)
	fmt.Fprintf(&w, "health 0x%08x", uint32(st.Health))
	for _, f := range st.Health.Faults() {
		fmt.Fprintf(&w, " %s", f.Name())
	}
	fmt.Fprintln(&w)
	if st.Firmware != "" {
		fmt.Fprintf(&w, "fw     %s\n", st.Firmware)
	}
	return w.String()
}

var (
	// ConnectCmd connects a sensor.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[PORT_URL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			portURL := s.Config.PortURL
			if len(c.Args) > 0 {
				portURL = c.Args[0]
			}
			if err := s.Connect(portURL); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current sensor.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name: "ports",
		Func: func(c *ishell.Context) {
			ports, err := transport.Ports()
			if err != nil {
				c.Err(err)
				return
			}
			if ports == nil {
				ports = []string{}
			}
			ShellFrom(c).Output(c, ports, func() string {
				if len(ports) == 0 {
					return "No serial ports found\n"
				}
				var w bytes.Buffer
				for _, p := range ports {
					fmt.Fprintln(&w, p)
				}
				return w.String()
			})
		},
	}

	// FirmwareCmd requests the firmware revision.
	FirmwareCmd = ishell.Cmd{
		Name:    "fw",
		Aliases: []string{"firmware"},
		Func: MustBeConnected(func(c *ishell.Context, dev *device.Device) {
			s := ShellFrom(c)
			// drop a revision reported before this request
			dev.Store.TakeFirmware()
			if err := dev.RequestFirmwareVersion(); err != nil {
				c.Err(err)
				return
			}
			fw, err := s.WaitFirmware(s.Conn)
			if err != nil {
				c.Err(err)
				return
			}
			s.Output(c, map[string]string{"firmware": fw}, func() string { return fw + "\n" })
		}),
	}

	// ZeroGyrosCmd zeroes gyro biases.
	ZeroGyrosCmd = ishell.Cmd{
		Name:    "zero",
		Aliases: []string{"zero-gyros"},
		Help:    "keep the sensor still for a few seconds",
		Func:    sendCmd((*device.Device).ZeroGyros),
	}

	// ResetEKFCmd resets the orientation filter.
	ResetEKFCmd = ishell.Cmd{
		Name:    "reset",
		Aliases: []string{"reset-ekf"},
		Func:    sendCmd((*device.Device).ResetEKF),
	}

	// MagRefCmd sets the magnetic reference.
	MagRefCmd = ishell.Cmd{
		Name:    "magref",
		Aliases: []string{"set-mag-reference"},
		Func:    sendCmd((*device.Device).SetMagneticReference),
	}

	// StateCmd prints the latest readings.
	StateCmd = ishell.Cmd{
		Name:    "state",
		Aliases: []string{"s"},
		Func: MustBeConnected(func(c *ishell.Context, dev *device.Device) {
			st := dev.State()
			ShellFrom(c).Output(c, st, func() string { return formatState(st) })
		}),
	}

	// StatusCmd prints a new firmware revision and health faults.
	StatusCmd = ishell.Cmd{
		Name: "status",
		Func: MustBeConnected(func(c *ishell.Context, dev *device.Device) {
			var w bytes.Buffer
			if err := dev.CheckStatus(&w); err != nil {
				c.Err(err)
				return
			}
			if w.Len() == 0 {
				c.Println("OK")
				return
			}
			c.Print(w.String())
		}),
	}

	// StatsCmd prints frame counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Func: MustBeConnected(func(c *ishell.Context, dev *device.Device) {
			stats := dev.Stream.Stats()
			ShellFrom(c).Output(c, stats, func() string {
				return fmt.Sprintf("accepted %d rejected %d\n", stats.Accepted, stats.Rejected)
			})
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	env.SetupFlags()
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
