package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/um7.go/pkg/mqtt"
	"github.com/robotalks/um7.go/pkg/telemetry"
)

var (
	mqttURL = "mqtt://localhost:1883/robo/"
	filter  = "#"
)

func init() {
	if val := os.Getenv("UM7_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&filter, "filter", filter, "Topic filter relative to the prefix.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub(filter, mqtt.Handler(func(topic string, payload []byte) {
		if !strings.HasSuffix(topic, "/telemetry") {
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		sample, err := telemetry.DecodeSample(payload)
		if err != nil {
			log.Printf("%s: bad sample: %v", topic, err)
			return
		}
		log.Printf("%s: [%s] %s", topic, sample.Time().Format("15:04:05.000"), sample.String())
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
