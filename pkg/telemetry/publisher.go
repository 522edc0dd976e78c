package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/um7.go/pkg/comm"
	"github.com/robotalks/um7.go/pkg/device"
)

// Broker publishes payloads to topics, e.g. *mqtt.Queue.
type Broker interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

// Meta describes a device, retained at <name>/meta.
type Meta struct {
	Description string `json:"description,omitempty"`
	Transport   string `json:"transport,omitempty"`
	Firmware    string `json:"firmware,omitempty"`
}

// HealthReport is retained at <name>/health whenever health changes.
type HealthReport struct {
	Health uint32   `json:"health"`
	Faults []string `json:"faults"`
}

// TelemetryTopic is the topic of encoded Samples, relative to the queue prefix.
func TelemetryTopic(name string) string { return name + "/telemetry" }

// HealthTopic is the topic of HealthReport.
func HealthTopic(name string) string { return name + "/health" }

// MetaTopic is the topic of Meta.
func MetaTopic(name string) string { return name + "/meta" }

// Publisher implements device.StateNotifier and publishes decoded state.
type Publisher struct {
	Broker Broker
	Name   string
	// Interval is the minimum time between two samples, 0 publishes
	// on every update.
	Interval time.Duration

	lock       sync.Mutex
	meta       Meta
	lastSample time.Time
	health     *device.Health
}

// NewPublisher creates a Publisher.
func NewPublisher(broker Broker, name string, meta Meta) *Publisher {
	return &Publisher{Broker: broker, Name: name, meta: meta}
}

// StateChanged implements device.StateNotifier.
func (p *Publisher) StateChanged(ctx context.Context, register byte, s device.State) {
	p.lock.Lock()
	var pubMeta, pubHealth, pubSample bool
	switch register {
	case comm.RegFirmwareRevision:
		if pubMeta = s.Firmware != p.meta.Firmware; pubMeta {
			p.meta.Firmware = s.Firmware
		}
	case comm.RegHealth:
		if pubHealth = p.health == nil || *p.health != s.Health; pubHealth {
			h := s.Health
			p.health = &h
		}
	}
	if p.Interval == 0 || s.Updated.Sub(p.lastSample) >= p.Interval {
		p.lastSample, pubSample = s.Updated, true
	}
	p.lock.Unlock()

	if pubMeta {
		p.PublishMeta()
	}
	if pubHealth {
		p.publishHealth(s.Health)
	}
	if pubSample {
		p.publishSample(s)
	}
}

// PublishMeta publishes the retained meta document.
func (p *Publisher) PublishMeta() {
	p.lock.Lock()
	meta := p.meta
	p.lock.Unlock()
	payload, err := json.Marshal(&meta)
	if err != nil {
		glog.Errorf("encode meta error: %v", err)
		return
	}
	p.Broker.PubWith(MetaTopic(p.Name), payload, 1, true)
}

// ClearMeta removes the retained meta document, marking the device gone.
func (p *Publisher) ClearMeta() paho.Token {
	return p.Broker.PubWith(MetaTopic(p.Name), nil, 1, true)
}

func (p *Publisher) publishHealth(h device.Health) {
	report := HealthReport{Health: uint32(h), Faults: []string{}}
	for _, f := range h.Faults() {
		report.Faults = append(report.Faults, f.Name())
	}
	payload, err := json.Marshal(&report)
	if err != nil {
		glog.Errorf("encode health error: %v", err)
		return
	}
	if !h.OK() {
		glog.Warningf("%s health: %v", p.Name, report.Faults)
	}
	p.Broker.PubWith(HealthTopic(p.Name), payload, 1, true)
}

func (p *Publisher) publishSample(s device.State) {
	payload, err := SampleFrom(p.Name, s).Encode()
	if err != nil {
		glog.Errorf("encode sample error: %v", err)
		return
	}
	p.Broker.PubWith(TelemetryTopic(p.Name), payload, 0, false)
}
