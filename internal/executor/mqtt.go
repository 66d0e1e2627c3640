package executor

import (
	"context"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout   = 10 * time.Second
	operationTimeout = 5 * time.Second

	queueSize = 256
)

// NewClientOptions builds paho options from the configuration.
func NewClientOptions(cfg MQTTConfig) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOrderMatters(true) // start/stop order must survive delivery

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("[MQTT] connection interrupted (%v), auto-reconnect will retry", err)
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		log.Println("[MQTT] reconnecting...")
	})
	return opts
}

// Connect creates a paho client and waits for the first connection.
func Connect(cfg MQTTConfig) (mqtt.Client, error) {
	client := mqtt.NewClient(NewClientOptions(cfg))
	log.Printf("[MQTT] connecting to %s as %s", cfg.Broker, cfg.ClientID)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("failed to connect to %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Broker, err)
	}
	log.Println("[MQTT] connected")
	return client, nil
}

func wait(token mqtt.Token, what string) error {
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("failed to %s: timeout", what)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	return nil
}

// Transport bridges an executor to MQTT: messages on the in topic feed the
// executor inbox and everything from the outbox is published on the out topic.
type Transport struct {
	client mqtt.Client
	cfg    MQTTConfig
}

func NewTransport(client mqtt.Client, cfg MQTTConfig) *Transport {
	return &Transport{client: client, cfg: cfg}
}

// Serve subscribes the executor inbox to the in topic and publishes the
// outbox until it closes or ctx is done.
func (t *Transport) Serve(ctx context.Context, exec *Executor) error {
	// paho callbacks must not block, so requests pass through a queue
	queue := make(chan Message, queueSize)
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		m, err := Decode(msg.Payload())
		if err != nil {
			log.Printf("[MQTT] dropping message on %s: %v", msg.Topic(), err)
			return
		}
		if m.Type != TypeStart && m.Type != TypeStop {
			log.Printf("[MQTT] dropping %s message on %s", m.Type, msg.Topic())
			return
		}
		select {
		case queue <- m:
		default:
			log.Printf("[MQTT] request queue full, dropping %s for run %d", m.Type, m.RunID)
		}
	}

	go func() {
		inbox := exec.Inbox()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-queue:
				select {
				case inbox <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	in := t.cfg.InTopic()
	if err := wait(t.client.Subscribe(in, t.cfg.QoS, handler), "subscribe to "+in); err != nil {
		return err
	}
	log.Printf("[MQTT] listening on %s, replying on %s", in, t.cfg.OutTopic())
	defer t.client.Unsubscribe(in)

	outbox := exec.Outbox()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-outbox:
			if !ok {
				return nil
			}
			if err := t.publish(t.cfg.OutTopic(), m); err != nil {
				log.Printf("[MQTT] %v", err)
			}
		}
	}
}

func (t *Transport) publish(topic string, m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	return wait(t.client.Publish(topic, t.cfg.QoS, false, data), fmt.Sprintf("publish %s for run %d", m.Type, m.RunID))
}

// Remote is the caller side of the MQTT bridge. It sends start and stop
// messages to the in topic and exposes replies from the out topic.
type Remote struct {
	t       *Transport
	replies chan Message
}

// NewRemote subscribes to the out topic. Replies are delivered on Replies
// until Close is called.
func NewRemote(client mqtt.Client, cfg MQTTConfig) (*Remote, error) {
	r := &Remote{
		t:       NewTransport(client, cfg),
		replies: make(chan Message, queueSize),
	}
	out := cfg.OutTopic()
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		m, err := Decode(msg.Payload())
		if err != nil {
			log.Printf("[MQTT] dropping reply on %s: %v", msg.Topic(), err)
			return
		}
		select {
		case r.replies <- m:
		default:
			log.Printf("[MQTT] reply buffer full, dropping %s for run %d", m.Type, m.RunID)
		}
	}
	if err := wait(client.Subscribe(out, cfg.QoS, handler), "subscribe to "+out); err != nil {
		return nil, err
	}
	return r, nil
}

// Send publishes a message to the executor.
func (r *Remote) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to send %s message: %w", m.Type, err)
	}
	return r.t.publish(r.t.cfg.InTopic(), m)
}

// Replies delivers decoded messages from the out topic.
func (r *Remote) Replies() <-chan Message {
	return r.replies
}

// Close unsubscribes from the out topic.
func (r *Remote) Close() error {
	return wait(r.t.client.Unsubscribe(r.t.cfg.OutTopic()), "unsubscribe")
}
