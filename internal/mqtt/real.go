package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/tentwatch/growmond/internal/config"
	"github.com/tentwatch/growmond/internal/engine"
	"github.com/tentwatch/growmond/internal/engine/profile"
)

// Client is the paho-backed Publisher. It also subscribes to the
// configured sensor topics and feeds decoded updates to a Dispatcher.
type Client struct {
	client  paho.Client
	cfg     config.MQTTConfig
	timeout time.Duration
}

// NewClient connects to the broker and subscribes each growspace's
// sensor bindings, routing inbound messages through the dispatcher.
func NewClient(cfg config.MQTTConfig, spaces []config.GrowspaceConfig, dispatcher Dispatcher) (*Client, error) {
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(true)
	if cfg.Username != "" {
		opts.SetUsername(config.ExpandEnvString(cfg.Username))
		opts.SetPassword(config.ExpandEnvString(cfg.Password))
	}
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn().Err(err).Msg("mqtt connection lost")
	})
	opts.SetOnConnectHandler(func(c paho.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("mqtt connected")
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("timed out connecting to mqtt broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to mqtt broker %s: %w", cfg.Broker, err)
	}

	c := &Client{client: client, cfg: cfg, timeout: timeout}
	for _, space := range spaces {
		if err := c.subscribeGrowspace(space, dispatcher); err != nil {
			client.Disconnect(250)
			return nil, err
		}
	}
	return c, nil
}

func (c *Client) subscribeGrowspace(space config.GrowspaceConfig, dispatcher Dispatcher) error {
	id := space.ID
	sensors := []struct {
		topic    string
		variable profile.Variable
	}{
		{space.Sensors.Temperature, profile.VarTemperature},
		{space.Sensors.Humidity, profile.VarHumidity},
		{space.Sensors.VPD, profile.VarVPD},
		{space.Sensors.CO2, profile.VarCO2},
		{space.Sensors.Exhaust, profile.VarExhaust},
	}
	for _, s := range sensors {
		if s.topic == "" {
			continue
		}
		variable := s.variable
		if err := c.subscribe(s.topic, func(body []byte, at time.Time) {
			u, err := ParseSensorPayload(id, variable, body, at)
			if err != nil {
				log.Warn().Err(err).Str("growspace", id).Str("variable", string(variable)).Msg("dropping malformed sensor message")
				return
			}
			dispatcher.HandleSensor(u)
		}); err != nil {
			return err
		}
	}

	switches := []struct {
		topic string
		kind  engine.SwitchKind
	}{
		{space.Sensors.Light, engine.SwitchLight},
		{space.Sensors.Fan, engine.SwitchFan},
		{space.Sensors.Dehumidifier, engine.SwitchDehumidifier},
		{space.Sensors.Humidifier, engine.SwitchHumidifier},
	}
	for _, s := range switches {
		if s.topic == "" {
			continue
		}
		kind := s.kind
		if err := c.subscribe(s.topic, func(body []byte, at time.Time) {
			u, err := ParseSwitchPayload(id, kind, body, at)
			if err != nil {
				log.Warn().Err(err).Str("growspace", id).Str("switch", string(kind)).Msg("dropping malformed switch message")
				return
			}
			dispatcher.HandleSwitch(u)
		}); err != nil {
			return err
		}
	}

	stageTopic := c.cfg.BaseTopic + "/growspaces/" + id + "/stage"
	return c.subscribe(stageTopic, func(body []byte, at time.Time) {
		u, err := ParseStagePayload(id, body, at)
		if err != nil {
			log.Warn().Err(err).Str("growspace", id).Msg("dropping malformed stage message")
			return
		}
		dispatcher.HandleStage(u)
	})
}

func (c *Client) subscribe(topic string, handle func(body []byte, at time.Time)) error {
	token := c.client.Subscribe(topic, c.cfg.QoS, func(_ paho.Client, msg paho.Message) {
		handle(msg.Payload(), time.Now())
	})
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("timed out subscribing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	log.Debug().Str("topic", topic).Msg("mqtt subscribed")
	return nil
}

// PublishVerdict publishes a verdict as a retained message so late
// subscribers see the current state.
func (c *Client) PublishVerdict(ev engine.VerdictEvent) error {
	payload, err := FormatVerdict(ev)
	if err != nil {
		return fmt.Errorf("encoding verdict: %w", err)
	}
	return c.publish(VerdictTopic(c.cfg.BaseTopic, ev.Growspace, string(ev.Condition)), payload)
}

// PublishLightSchedule publishes a light schedule verdict, retained.
func (c *Client) PublishLightSchedule(ev engine.LightScheduleEvent) error {
	payload, err := FormatSchedule(ev)
	if err != nil {
		return fmt.Errorf("encoding light schedule: %w", err)
	}
	return c.publish(ScheduleTopic(c.cfg.BaseTopic, ev.Growspace), payload)
}

func (c *Client) publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, c.cfg.QoS, true, payload)
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (c *Client) Close() error {
	c.client.Disconnect(250)
	return nil
}
