package mqtt

import (
	"errors"
	"testing"

	"github.com/chrissnell/trailsense/pkg/config"
)

// newTestClient returns a client whose broker connection is simulated
func newTestClient(t *testing.T) (*Client, *int, *int) {
	t.Helper()
	c, err := New(config.MQTTData{Broker: "tcp://localhost:1883"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	connects, disconnects := 0, 0
	c.connect = func() error {
		connects++
		return nil
	}
	c.disconnect = func() {
		disconnects++
	}
	return c, &connects, &disconnects
}

func TestNewDefaults(t *testing.T) {
	c, _, _ := newTestClient(t)
	if c.cfg.BarometerTopic != config.DefaultBarometerTopic || c.cfg.GPSTopic != config.DefaultGPSTopic {
		t.Fatalf("topics = %q, %q", c.cfg.BarometerTopic, c.cfg.GPSTopic)
	}
	if c.cfg.ClientID != config.DefaultMQTTClientID {
		t.Fatalf("client id = %q", c.cfg.ClientID)
	}

	if _, err := New(config.MQTTData{}, nil); err == nil {
		t.Fatal("New accepted an empty broker")
	}
	if _, err := New(config.MQTTData{Broker: "tcp://x:1883", QoS: 3}, nil); err == nil {
		t.Fatal("New accepted qos 3")
	}
}

func TestBarometerMessages(t *testing.T) {
	c, _, _ := newTestClient(t)
	b := c.Barometer()

	updates := 0
	if _, err := b.Start(func() { updates++ }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if b.Pressure() != 0 {
		t.Fatalf("Pressure before any message = %v", b.Pressure())
	}

	if err := c.handleBarometer([]byte(`{"pressure": 1012.4}`)); err != nil {
		t.Fatalf("handleBarometer: %v", err)
	}
	if b.Pressure() != 1012.4 || updates != 1 {
		t.Fatalf("pressure = %v, updates = %d", b.Pressure(), updates)
	}

	for _, bad := range []string{`not json`, `{"pressure": -1}`} {
		if err := c.handleBarometer([]byte(bad)); err == nil {
			t.Errorf("handleBarometer(%s) accepted", bad)
		}
	}
	if b.Pressure() != 1012.4 || updates != 1 {
		t.Fatalf("rejected message changed state: pressure = %v, updates = %d", b.Pressure(), updates)
	}
}

func TestGPSMessages(t *testing.T) {
	c, _, _ := newTestClient(t)
	g := c.GPS()

	if g.HasFix() {
		t.Fatal("HasFix before any message")
	}

	updates := 0
	if _, err := g.Start(func() { updates++ }); err != nil {
		t.Fatal(err)
	}

	if err := c.handleGPS([]byte(`{"latitude": 47.6, "longitude": -122.3, "altitude": 56.5, "altitude_accuracy": 3.2}`)); err != nil {
		t.Fatalf("handleGPS: %v", err)
	}
	if !g.HasFix() || updates != 1 {
		t.Fatalf("fix = %v, updates = %d", g.HasFix(), updates)
	}
	if loc := g.Location(); loc.Latitude != 47.6 || loc.Longitude != -122.3 {
		t.Fatalf("Location = %+v", loc)
	}
	if g.Altitude() != 56.5 {
		t.Fatalf("Altitude = %v", g.Altitude())
	}
	if acc, ok := g.AltitudeAccuracy(); !ok || acc != 3.2 {
		t.Fatalf("AltitudeAccuracy = %v, %v", acc, ok)
	}

	if err := c.handleGPS([]byte(`{"fix": false, "latitude": 47.6, "longitude": -122.3}`)); err != nil {
		t.Fatal(err)
	}
	if g.HasFix() {
		t.Fatal("HasFix after a no-fix report")
	}
	if _, ok := g.AltitudeAccuracy(); ok {
		t.Fatal("accuracy reported without one in the payload")
	}

	if err := c.handleGPS([]byte(`{"latitude": 91, "longitude": 0}`)); err == nil {
		t.Fatal("handleGPS accepted latitude 91")
	}
}

func TestConnectionSharedBySensors(t *testing.T) {
	c, connects, disconnects := newTestClient(t)

	bSub, err := c.Barometer().Start(func() {})
	if err != nil {
		t.Fatal(err)
	}
	gSub, err := c.GPS().Start(func() {})
	if err != nil {
		t.Fatal(err)
	}
	if *connects != 1 {
		t.Fatalf("connects = %d, expected one shared connection", *connects)
	}

	if err := c.Barometer().Stop(bSub); err != nil {
		t.Fatal(err)
	}
	if *disconnects != 0 {
		t.Fatal("disconnected while the GPS was still subscribed")
	}
	if err := c.GPS().Stop(gSub); err != nil {
		t.Fatal(err)
	}
	if *disconnects != 1 {
		t.Fatalf("disconnects = %d", *disconnects)
	}

	if err := c.GPS().Stop(gSub); err == nil {
		t.Fatal("second Stop of the same subscription succeeded")
	}
}

func TestConnectFailure(t *testing.T) {
	c, _, _ := newTestClient(t)
	c.connect = func() error {
		return errors.New("connection refused")
	}

	if _, err := c.Barometer().Start(func() {}); err == nil {
		t.Fatal("Start succeeded without a connection")
	}
	if c.subscribers != 0 {
		t.Fatalf("subscribers = %d after a failed start", c.subscribers)
	}
}
