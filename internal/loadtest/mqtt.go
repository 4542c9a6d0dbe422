package loadtest

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTRequestFunc connects a single paho client up front (returning an
// error if that fails) and builds a RequestFunc that publishes one message
// per request cycle to topic, waiting for the publish token to complete
// (the broker's PUBACK at QoS 1) before reporting success. Grounded on alibo-simple-mqtt-network-lab's paho client setup
// and other_examples/iamruinous's virtual-user MQTT publish loop.
func MQTTRequestFunc(brokerURL, clientID, topic string, qos byte, payload []byte) (RequestFunc, func(), error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		return nil, nil, fmt.Errorf("loadtest: mqtt connect %s: %w", brokerURL, token.Error())
	}

	req := func(ctx context.Context) error {
		token := client.Publish(topic, qos, false, payload)
		deadline, ok := ctx.Deadline()
		timeout := 5 * time.Second
		if ok {
			if d := time.Until(deadline); d > 0 && d < timeout {
				timeout = d
			}
		}
		if !token.WaitTimeout(timeout) {
			return fmt.Errorf("loadtest: publish to %s timed out", topic)
		}
		return token.Error()
	}

	cleanup := func() {
		client.Disconnect(250)
	}
	return req, cleanup, nil
}
