package netctl

import (
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Options struct {
	Broker         string
	Topic          string
	ClientPrefix   string
	ConnectTimeout time.Duration
}

// Subscriber listens on the control topic and routes messages to a Handler.
type Subscriber struct {
	opts   Options
	client mqtt.Client
	h      Handler
	log    zerolog.Logger
}

func NewSubscriber(opts Options, h Handler, log zerolog.Logger) *Subscriber {
	if opts.Topic == "" {
		opts.Topic = BaseTopic + "/#"
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	s := &Subscriber{opts: opts, h: h, log: log.With().Str("component", "mqtt").Logger()}

	id := opts.ClientPrefix + "-" + uuid.NewString()
	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(id)
	co.SetAutoReconnect(true)
	co.SetConnectTimeout(opts.ConnectTimeout)
	// subscribing here renews the subscription after a reconnect
	co.SetOnConnectHandler(func(c mqtt.Client) {
		s.log.Info().Str("broker", opts.Broker).Str("client_id", id).Msg("connected")
		if t := c.Subscribe(opts.Topic, 0, s.onMessage); t.WaitTimeout(opts.ConnectTimeout) && t.Error() != nil {
			s.log.Error().Err(t.Error()).Str("topic", opts.Topic).Msg("subscribe")
		}
	})
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.log.Warn().Err(err).Msg("connection lost")
	})
	s.client = mqtt.NewClient(co)
	return s
}

func (s *Subscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if err := Route(s.h, msg.Topic(), msg.Payload(), s.log); err != nil {
		s.log.Info().Err(err).Msg("message ignored")
	}
}

// Connect waits up to the connect timeout for the broker.
func (s *Subscriber) Connect() error {
	t := s.client.Connect()
	if !t.WaitTimeout(s.opts.ConnectTimeout) {
		return fmt.Errorf("netctl: connect %s: %w", s.opts.Broker, errors.New("timeout"))
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("netctl: connect %s: %w", s.opts.Broker, err)
	}
	return nil
}

func (s *Subscriber) Close() {
	if s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}
