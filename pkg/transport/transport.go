// Package transport opens byte streams carrying the sensor protocol.
package transport

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
	"golang.org/x/net/websocket"
)

// DefaultBaudRate is the factory baud rate of the UM7.
const DefaultBaudRate = 115200

// DefaultDialTimeout limits connecting network transports.
const DefaultDialTimeout = 5 * time.Second

// Opener opens a transport from a parsed URL.
type Opener func(u *url.URL) (io.ReadWriteCloser, error)

// UnsupportedSchemeError indicates no Opener is registered for a scheme.
type UnsupportedSchemeError struct {
	Scheme string
}

// Error implements error.
func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("unsupported transport scheme %q", e.Scheme)
}

// Openers are the registered transports by URL scheme.
var Openers = map[string]Opener{
	"serial": OpenSerial,
	"tcp":    OpenTCP,
	"ws":     OpenWebsocket,
	"wss":    OpenWebsocket,
}

// Open opens a transport. Supported forms:
//
//	/dev/ttyUSB0                    serial port at DefaultBaudRate
//	serial:///dev/ttyUSB0?baud=N    serial port, also parity=none|odd|even,
//	                                stopbits=1|2, databits=N, read-timeout=DUR
//	tcp://host:port                 raw TCP, e.g. a serial device server
//	ws://host/path, wss://...       websocket bridge carrying binary frames
func Open(rawURL string) (io.ReadWriteCloser, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "serial://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	opener, ok := Openers[u.Scheme]
	if !ok {
		return nil, &UnsupportedSchemeError{Scheme: u.Scheme}
	}
	return opener(u)
}

// SerialMode builds the serial mode from URL query parameters.
func SerialMode(q url.Values) (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	var err error
	if val := q.Get("baud"); val != "" {
		if mode.BaudRate, err = strconv.Atoi(val); err != nil {
			return nil, fmt.Errorf("invalid baud %q: %w", val, err)
		}
	}
	if val := q.Get("databits"); val != "" {
		if mode.DataBits, err = strconv.Atoi(val); err != nil {
			return nil, fmt.Errorf("invalid databits %q: %w", val, err)
		}
	}
	switch val := q.Get("parity"); val {
	case "", "none":
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		return nil, fmt.Errorf("invalid parity %q", val)
	}
	switch val := q.Get("stopbits"); val {
	case "", "1":
	case "2":
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("invalid stopbits %q", val)
	}
	return mode, nil
}

// OpenSerial opens a serial port.
func OpenSerial(u *url.URL) (io.ReadWriteCloser, error) {
	name := u.Path
	if u.Host != "" {
		// serial://COM3
		name = u.Host + u.Path
	}
	mode, err := SerialMode(u.Query())
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if val := u.Query().Get("read-timeout"); val != "" {
		timeout, err := time.ParseDuration(val)
		if err == nil {
			err = port.SetReadTimeout(timeout)
		}
		if err != nil {
			port.Close()
			return nil, fmt.Errorf("read-timeout %q: %w", val, err)
		}
	}
	return port, nil
}

// OpenTCP connects to a TCP endpoint.
func OpenTCP(u *url.URL) (io.ReadWriteCloser, error) {
	conn, err := net.DialTimeout("tcp", u.Host, DefaultDialTimeout)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// OpenWebsocket connects to a websocket bridge. The origin defaults to
// the bridge itself and can be overridden with the origin parameter.
func OpenWebsocket(u *url.URL) (io.ReadWriteCloser, error) {
	q := u.Query()
	origin := q.Get("origin")
	if origin == "" {
		scheme := "http"
		if u.Scheme == "wss" {
			scheme = "https"
		}
		origin = scheme + "://" + u.Host + "/"
	}
	q.Del("origin")
	target := *u
	target.RawQuery = q.Encode()
	conn, err := websocket.Dial(target.String(), "", origin)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

// Ports lists serial ports present on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
