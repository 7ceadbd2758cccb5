package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/config"
	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/models"
)

const publishTimeout = 10 * time.Second

// Publisher pushes the latest readings to an MQTT broker as retained messages.
type Publisher struct {
	client paho.Client
	prefix string
	logger *logrus.Logger
}

// ReadingMessage is the payload published on <prefix>/intensity/current.
type ReadingMessage struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Forecast int       `json:"forecast"`
	Actual   *int      `json:"actual"`
	Index    string    `json:"index"`
}

// MixMessage is the payload published on <prefix>/generation/mix.
type MixMessage struct {
	RetrievedAt time.Time                   `json:"retrieved_at"`
	Fuels       []models.GenerationMixEntry `json:"fuels"`
}

// NewPublisher builds a publisher for cfg. Call Connect before publishing.
func NewPublisher(cfg config.MQTTConfig, logger *logrus.Logger) *Publisher {
	p := &Publisher{prefix: cfg.TopicPrefix, logger: logger}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(fmt.Sprintf("carbon-tracker-%d", time.Now().UnixNano()))
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.WithError(err).Warn("MQTT connection lost")
	})
	opts.SetOnConnectHandler(func(_ paho.Client) {
		logger.Info("Connected to MQTT broker")
	})

	p.client = paho.NewClient(opts)
	return p
}

// newPublisherWithClient is used by tests to inject a fake client.
func newPublisherWithClient(client paho.Client, prefix string, logger *logrus.Logger) *Publisher {
	return &Publisher{client: client, prefix: prefix, logger: logger}
}

// Connect dials the broker.
func (p *Publisher) Connect() error {
	p.logger.Info("Connecting to MQTT broker...")
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return nil
}

// Disconnect closes the broker connection.
func (p *Publisher) Disconnect() {
	p.client.Disconnect(250)
}

// IntensityTopic is where the current reading is published.
func (p *Publisher) IntensityTopic() string {
	return p.prefix + "/intensity/current"
}

// MixTopic is where the generation mix is published.
func (p *Publisher) MixTopic() string {
	return p.prefix + "/generation/mix"
}

// PublishReading publishes the reading for the current half hour.
func (p *Publisher) PublishReading(r models.IntensityReading) error {
	return p.publish(p.IntensityTopic(), ReadingMessage{
		From:     r.From,
		To:       r.To,
		Forecast: r.Forecast,
		Actual:   r.Actual,
		Index:    r.Index,
	})
}

// PublishMix publishes the generation mix retrieved at retrievedAt.
func (p *Publisher) PublishMix(rows []models.GenerationMixEntry, retrievedAt time.Time) error {
	return p.publish(p.MixTopic(), MixMessage{RetrievedAt: retrievedAt, Fuels: rows})
}

func (p *Publisher) publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}

	token := p.client.Publish(topic, 1, true, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timed out after %s", topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	p.logger.Debugf("MQTT: published %d bytes to %s", len(data), topic)
	return nil
}
