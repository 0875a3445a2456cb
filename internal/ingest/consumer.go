package ingest

import (
	"context"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"incubator-alerts/internal/config"
	"incubator-alerts/internal/vitals"
)

// Processor receives parsed readings. Implemented by service.Monitor.
type Processor interface {
	Process(ctx context.Context, reading vitals.Reading) ([]vitals.Alert, error)
}

// Consumer subscribes to the incubator telemetry topic and feeds parsed
// readings into the monitoring pipeline. Per-device ordering is the
// broker's responsibility, not ours.
type Consumer struct {
	cfg    config.IngestConfig
	proc   Processor
	client mqtt.Client
	logger zerolog.Logger
}

// NewConsumer constructs an MQTT consumer; Start connects it.
func NewConsumer(cfg config.IngestConfig, proc Processor, logger zerolog.Logger) *Consumer {
	return &Consumer{
		cfg:    cfg,
		proc:   proc,
		logger: logger.With().Str("component", "ingest").Logger(),
	}
}

// Start connects to the broker and subscribes to the reading topic.
// Message handling runs on paho's callback goroutines; the monitoring
// pipeline is safe for that concurrency.
func (c *Consumer) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.cfg.Broker)
	opts.SetClientID(c.cfg.ClientID)
	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
	}
	if c.cfg.Password != "" {
		opts.SetPassword(c.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(false)
	opts.SetOrderMatters(true)

	c.client = mqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(c.cfg.ConnectTimeout) {
		return fmt.Errorf("connect to mqtt broker %s: timeout", c.cfg.Broker)
	}
	if token.Error() != nil {
		return fmt.Errorf("connect to mqtt broker %s: %w", c.cfg.Broker, token.Error())
	}

	sub := c.client.Subscribe(c.cfg.Topic, byte(c.cfg.QoS), func(_ mqtt.Client, msg mqtt.Message) {
		c.handle(ctx, msg.Topic(), msg.Payload())
	})
	if sub.Wait() && sub.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", c.cfg.Topic, sub.Error())
	}

	c.logger.Info().
		Str("broker", c.cfg.Broker).
		Str("topic", c.cfg.Topic).
		Msg("mqtt consumer started")
	return nil
}

// Close unsubscribes and disconnects.
func (c *Consumer) Close() {
	if c.client == nil {
		return
	}
	c.client.Unsubscribe(c.cfg.Topic)
	c.client.Disconnect(250)
}

func (c *Consumer) handle(ctx context.Context, topic string, payload []byte) {
	reading, err := ParseReading(topic, payload)
	if err != nil {
		c.logger.Warn().Err(err).Str("topic", topic).Msg("discarding unparseable reading")
		return
	}

	if _, err := c.proc.Process(ctx, reading); err != nil {
		c.logger.Error().Err(err).
			Str("incubadora_id", reading.IncubatorID).
			Msg("reading processing failed")
	}
}
