package main

//go-build: CGO_ENABLED=0

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"io"
	"log"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/um7.go/pkg/device"
	"github.com/robotalks/um7.go/pkg/env"
	fx "github.com/robotalks/um7.go/pkg/framework"
	"github.com/robotalks/um7.go/pkg/mqtt"
)

var statusInterval = 5 * time.Second

func init() {
	env.SetupFlags()
	flag.DurationVar(&statusInterval, "status-interval", statusInterval, "Interval to log firmware and health, 0 to disable")
}

func receiveLoop(dev *device.Device, closer io.Closer) fx.Runnable {
	return fx.RunFunc(func(ctx context.Context) error {
		return fx.RunWithContextCloser(ctx, closer, func() error {
			if err := dev.RequestFirmwareVersion(); err != nil {
				return err
			}
			return dev.Run(ctx)
		})
	})
}

func statusLoop(dev *device.Device) fx.Runnable {
	return fx.RunFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
			var out bytes.Buffer
			if err := dev.CheckStatus(&out); err != nil {
				return err
			}
			for scanner := bufio.NewScanner(&out); scanner.Scan(); {
				glog.Info(scanner.Text())
			}
			stats := dev.Stream.Stats()
			glog.V(2).Infof("frames accepted %d rejected %d", stats.Accepted, stats.Rejected)
		}
	})
}

func main() {
	flag.Parse()

	conf := env.NewConfig()
	dev, closer := conf.MustOpenDevice()

	if conf.MQTTBrokerURL != "" {
		q, err := conf.NewQueue()
		if err != nil {
			log.Fatalln(err)
		}
		pub := conf.NewPublisher(q)
		q.OnConnect = func(*mqtt.Queue) { pub.PublishMeta() }
		if token := q.Connect(); token.Wait() && token.Error() != nil {
			log.Fatalf("connect %s error: %v", conf.MQTTBrokerURL, token.Error())
		}
		dev.Store.AddNotifier(pub)
		defer func() {
			pub.ClearMeta().WaitTimeout(time.Second)
			q.Close()
		}()
	}

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun("receive", receiveLoop(dev, closer)))
	if statusInterval > 0 {
		runner.Go(fx.NamedRun("status", statusLoop(dev)))
	}
	if err := runner.Wait(); err != nil {
		glog.Error(err)
	}
	glog.Flush()
}
