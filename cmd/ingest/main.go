package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"metrics-dashboard/internal/ingest"
	"metrics-dashboard/internal/util"
)

type options struct {
	APIURL   string
	APIKey   string
	Mode     string
	Window   time.Duration
	Step     time.Duration
	Broker   string
	Topic    string
	ClientID string
	Connect  time.Duration
	LogPath  string
	LogLevel string
}

func parseFlags() *options {
	o := &options{}

	flag.StringVar(&o.APIURL, "api-url", getEnv("METRICS_API_URL", "http://localhost:8080"), "Metrics API base URL")
	flag.StringVar(&o.APIKey, "api-key", getEnv("METRICS_API_KEY", ""), "API key for POST /metrics")
	flag.StringVar(&o.Mode, "mode", "seed", "seed (synthetic readings) or mqtt (broker bridge)")
	flag.DurationVar(&o.Window, "window", 5*time.Minute, "Seed: how far back the first reading is")
	flag.DurationVar(&o.Step, "step", 10*time.Second, "Seed: spacing between readings")
	flag.StringVar(&o.Broker, "broker", getEnv("METRICS_MQTT_BROKER", "tcp://localhost:1883"), "MQTT: broker URL")
	flag.StringVar(&o.Topic, "topic", "sensors/+/emission", "MQTT: topic filter to forward")
	flag.StringVar(&o.ClientID, "client-id", fmt.Sprintf("metrics-ingest-%d", time.Now().UnixNano()), "MQTT: client id")
	flag.DurationVar(&o.Connect, "connect-timeout", 30*time.Second, "MQTT: give up if the broker is unreachable for this long")
	flag.StringVar(&o.LogPath, "log-path", "../log", "Log folder")
	flag.StringVar(&o.LogLevel, "log-level", "info", "Log level (debug|info|warn|error)")

	flag.Parse()

	if o.APIKey == "" {
		fmt.Fprintln(os.Stderr, "Error: -api-key (or METRICS_API_KEY) is required")
		flag.Usage()
		os.Exit(2)
	}
	if o.Step <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -step must be positive")
		os.Exit(2)
	}
	return o
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	os.Exit(run(parseFlags()))
}

func run(o *options) int {

	level, err := util.ParseLogLevel(o.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger := &util.MetricsLogger{}
	if err := logger.Init(o.LogPath, "ingest.log", level, false); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		return 1
	}
	defer logger.DeInit()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := ingest.NewClient(o.APIURL, o.APIKey)

	switch o.Mode {
	case "seed":
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		endTime := time.Now()
		startTime := endTime.Add(-o.Window)

		n, err := ingest.Seed(ctx, client, logger, startTime, endTime, o.Step, func() float64 {
			return 400 + rng.Float64()*50
		})
		fmt.Printf("Ingested %d readings\n", n)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Seeding stopped:", err)
			return 1
		}
		return 0

	case "mqtt":
		mqttc, err := ingest.NewMQTTClient(ctx, ingest.MQTTOptions{
			BrokerURL:      o.Broker,
			ClientID:       o.ClientID,
			ConnectTimeout: o.Connect,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "mqtt connect:", err)
			return 1
		}
		defer mqttc.Close()

		bridge := ingest.NewBridge(client, logger, 10*time.Second)
		if err := bridge.Start(mqttc, o.Topic, 1); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("Forwarding %s from %s to %s\n", o.Topic, o.Broker, o.APIURL)

		<-ctx.Done()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown mode %q\n", o.Mode)
		return 2
	}
}
