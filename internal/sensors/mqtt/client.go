// Package mqtt feeds the engines from a barometer and GPS that publish JSON
// readings to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/chrissnell/trailsense/internal/log"
	"github.com/chrissnell/trailsense/internal/sensors"
	"github.com/chrissnell/trailsense/pkg/config"
)

const (
	connectTimeout    = 10 * time.Second
	subscribeTimeout  = 5 * time.Second
	disconnectQuiesce = 250 // ms
)

// BarometerPayload is the message expected on the barometer topic.
// Pressure is station pressure in hPa.
type BarometerPayload struct {
	Pressure float64 `json:"pressure"`
}

// GPSPayload is the message expected on the GPS topic. Fix defaults to true
// when omitted.
type GPSPayload struct {
	Fix              *bool    `json:"fix,omitempty"`
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	Altitude         float64  `json:"altitude"`
	AltitudeAccuracy *float64 `json:"altitude_accuracy,omitempty"`
}

// Client holds one broker connection shared by the barometer and the GPS.
// The connection is opened when the first sensor subscriber starts and
// closed when the last one stops.
type Client struct {
	cfg    config.MQTTData
	logger *zap.SugaredLogger

	connect    func() error
	disconnect func()

	connMu      sync.Mutex
	subscribers int

	mu       sync.RWMutex
	pressure float64
	gps      GPSPayload
	hasGPS   bool

	barometer Barometer
	gpsSensor GPS
}

// New creates a client for the broker in cfg. Nothing connects until a
// sensor is started.
func New(cfg config.MQTTData, logger *zap.SugaredLogger) (*Client, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("invalid mqtt qos %d", cfg.QoS)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = config.DefaultMQTTClientID
	}
	if cfg.BarometerTopic == "" {
		cfg.BarometerTopic = config.DefaultBarometerTopic
	}
	if cfg.GPSTopic == "" {
		cfg.GPSTopic = config.DefaultGPSTopic
	}

	c := &Client{
		cfg:    cfg,
		logger: log.OrNop(logger),
	}
	c.barometer.client = c
	c.gpsSensor.client = c

	var conn paho.Client
	c.connect = func() error {
		conn = paho.NewClient(c.clientOptions())
		token := conn.Connect()
		if !token.WaitTimeout(connectTimeout) {
			return fmt.Errorf("mqtt connect to %s timed out", cfg.Broker)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect to %s failed: %w", cfg.Broker, err)
		}
		return nil
	}
	c.disconnect = func() {
		if conn != nil && conn.IsConnected() {
			conn.Disconnect(disconnectQuiesce)
		}
		conn = nil
	}

	return c, nil
}

// Barometer returns the barometer fed by the barometer topic
func (c *Client) Barometer() *Barometer {
	return &c.barometer
}

// GPS returns the receiver fed by the GPS topic
func (c *Client) GPS() *GPS {
	return &c.gpsSensor
}

func (c *Client) clientOptions() *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(c.cfg.Broker)
	opts.SetClientID(c.cfg.ClientID)
	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)

	// Subscriptions are made in the connect handler so they are restored
	// after every reconnect
	opts.OnConnect = c.onConnect
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		c.logger.Warnw("mqtt connection lost", "broker", c.cfg.Broker, "error", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		c.logger.Infow("mqtt reconnecting", "broker", c.cfg.Broker)
	}
	return opts
}

func (c *Client) onConnect(conn paho.Client) {
	c.logger.Infow("mqtt connected", "broker", c.cfg.Broker)

	topics := map[string]func([]byte) error{
		c.cfg.BarometerTopic: c.handleBarometer,
		c.cfg.GPSTopic:       c.handleGPS,
	}
	for topic, handle := range topics {
		handle := handle
		token := conn.Subscribe(topic, c.cfg.QoS, func(_ paho.Client, msg paho.Message) {
			if err := handle(msg.Payload()); err != nil {
				c.logger.Warnw("discarding mqtt message", "topic", msg.Topic(), "error", err)
			}
		})
		if !token.WaitTimeout(subscribeTimeout) {
			c.logger.Errorw("mqtt subscribe timed out", "topic", topic)
			continue
		}
		if err := token.Error(); err != nil {
			c.logger.Errorw("mqtt subscribe failed", "topic", topic, "error", err)
			continue
		}
		c.logger.Infow("mqtt subscribed", "topic", topic)
	}
}

// handleBarometer stores a barometer reading and notifies its subscribers
func (c *Client) handleBarometer(payload []byte) error {
	var msg BarometerPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding barometer payload: %w", err)
	}
	if msg.Pressure < 0 {
		return fmt.Errorf("negative pressure %v", msg.Pressure)
	}

	c.mu.Lock()
	c.pressure = msg.Pressure
	c.mu.Unlock()

	c.barometer.listeners.Notify()
	return nil
}

// handleGPS stores a position report and notifies its subscribers
func (c *Client) handleGPS(payload []byte) error {
	var msg GPSPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding gps payload: %w", err)
	}
	if msg.Latitude < -90 || msg.Latitude > 90 || msg.Longitude < -180 || msg.Longitude > 180 {
		return fmt.Errorf("position %v,%v out of range", msg.Latitude, msg.Longitude)
	}

	c.mu.Lock()
	c.gps = msg
	c.hasGPS = true
	c.mu.Unlock()

	c.gpsSensor.listeners.Notify()
	return nil
}

func (c *Client) acquire() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.subscribers == 0 {
		if err := c.connect(); err != nil {
			return err
		}
	}
	c.subscribers++
	return nil
}

func (c *Client) release() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.subscribers == 0 {
		return
	}
	c.subscribers--
	if c.subscribers == 0 {
		c.disconnect()
		c.logger.Infow("mqtt disconnected", "broker", c.cfg.Broker)
	}
}

// Barometer implements sensors.Barometer
type Barometer struct {
	client    *Client
	listeners sensors.Listeners
}

var _ sensors.Barometer = (*Barometer)(nil)

func (b *Barometer) Start(onUpdate func()) (sensors.Subscription, error) {
	if err := b.client.acquire(); err != nil {
		return 0, err
	}
	return b.listeners.Add(onUpdate), nil
}

func (b *Barometer) Stop(sub sensors.Subscription) error {
	if !b.listeners.Remove(sub) {
		return fmt.Errorf("unknown barometer subscription %d", sub)
	}
	b.client.release()
	return nil
}

// Pressure returns the last reported pressure in hPa, or 0 before the
// first message.
func (b *Barometer) Pressure() float64 {
	b.client.mu.RLock()
	defer b.client.mu.RUnlock()
	return b.client.pressure
}

// GPS implements sensors.GPS
type GPS struct {
	client    *Client
	listeners sensors.Listeners
}

var _ sensors.GPS = (*GPS)(nil)

func (g *GPS) Start(onUpdate func()) (sensors.Subscription, error) {
	if err := g.client.acquire(); err != nil {
		return 0, err
	}
	return g.listeners.Add(onUpdate), nil
}

func (g *GPS) Stop(sub sensors.Subscription) error {
	if !g.listeners.Remove(sub) {
		return fmt.Errorf("unknown gps subscription %d", sub)
	}
	g.client.release()
	return nil
}

func (g *GPS) HasFix() bool {
	g.client.mu.RLock()
	defer g.client.mu.RUnlock()
	if !g.client.hasGPS {
		return false
	}
	return g.client.gps.Fix == nil || *g.client.gps.Fix
}

func (g *GPS) Location() sensors.Coordinate {
	g.client.mu.RLock()
	defer g.client.mu.RUnlock()
	return sensors.Coordinate{Latitude: g.client.gps.Latitude, Longitude: g.client.gps.Longitude}
}

func (g *GPS) Altitude() float64 {
	g.client.mu.RLock()
	defer g.client.mu.RUnlock()
	return g.client.gps.Altitude
}

func (g *GPS) AltitudeAccuracy() (float64, bool) {
	g.client.mu.RLock()
	defer g.client.mu.RUnlock()
	if g.client.gps.AltitudeAccuracy == nil {
		return 0, false
	}
	return *g.client.gps.AltitudeAccuracy, true
}
