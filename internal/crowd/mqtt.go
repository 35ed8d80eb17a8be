package crowd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/yatra_sevak/backend/internal/metrics"
	"github.com/yatra_sevak/backend/internal/models"
)

// ReadingSink receives every valid reading decoded from the broker.
type ReadingSink func(models.DensityReading) error

type sensorPayload struct {
	SiteID    string   `json:"site_id"`
	Density   *float64 `json:"density"`
	Timestamp string   `json:"timestamp"`
}

// DecodeReading parses a sensor message. The site comes from the payload or,
// failing that, the last topic segment (yatra/density/<site>). A missing
// timestamp means now.
func DecodeReading(topic string, payload []byte, now time.Time) (models.DensityReading, error) {
	var p sensorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return models.DensityReading{}, fmt.Errorf("%w: %v", ErrInvalidReading, err)
	}
	if p.Density == nil {
		return models.DensityReading{}, fmt.Errorf("%w: missing density", ErrInvalidReading)
	}

	site := strings.ToLower(strings.TrimSpace(p.SiteID))
	if site == "" {
		if i := strings.LastIndex(topic, "/"); i >= 0 {
			site = strings.ToLower(topic[i+1:])
		}
	}

	ts := now.UTC()
	if p.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			return models.DensityReading{}, fmt.Errorf("%w: timestamp %q", ErrInvalidReading, p.Timestamp)
		}
		ts = parsed.UTC()
	}

	r := models.DensityReading{SiteID: site, Timestamp: ts, Density: *p.Density, Source: SourceMQTT}
	if err := ValidateReading(r); err != nil {
		return models.DensityReading{}, err
	}
	return r, nil
}

type Subscriber struct {
	client mqtt.Client
	topic  string
	logger zerolog.Logger
}

// NewSubscriber connects to brokerURL and subscribes to topic on every
// (re)connect, handing decoded readings to sink.
func NewSubscriber(brokerURL, topic string, sink ReadingSink, logger zerolog.Logger) (*Subscriber, error) {
	s := &Subscriber{topic: topic, logger: logger}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID("yatra-sevak-" + time.Now().Format("20060102150405"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		s.handle(msg.Topic(), msg.Payload(), sink)
	})
	opts.OnConnect = func(c mqtt.Client) {
		token := c.Subscribe(topic, 0, nil)
		token.Wait()
		if err := token.Error(); err != nil {
			logger.Error().Err(err).Str("topic", topic).Msg("mqtt subscribe failed")
			return
		}
		logger.Info().Str("topic", topic).Msg("mqtt subscribed")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("mqtt connection lost")
	}

	s.client = mqtt.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		s.client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect %s: timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", brokerURL, err)
	}
	return s, nil
}

func (s *Subscriber) handle(topic string, payload []byte, sink ReadingSink) {
	r, err := DecodeReading(topic, payload, time.Now())
	if err != nil {
		metrics.DensityRejected.Inc()
		s.logger.Warn().Err(err).Str("topic", topic).Msg("density reading rejected")
		return
	}
	if err := sink(r); err != nil {
		metrics.DensityRejected.Inc()
		s.logger.Warn().Err(err).Str("site", r.SiteID).Msg("density reading not ingested")
	}
}

func (s *Subscriber) Close() {
	s.client.Disconnect(250)
}
