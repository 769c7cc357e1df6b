package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	SignalsExchange  = "storefront.signals"
	signalRoutingKey = "signal."
)

func routingKey(topic string) string {
	return signalRoutingKey + topic
}

func topicFromRoutingKey(key string) (string, bool) {
	if !strings.HasPrefix(key, signalRoutingKey) {
		return "", false
	}
	topic := strings.TrimPrefix(key, signalRoutingKey)
	return topic, topic != ""
}

type envelope struct {
	Topic   string    `json:"topic"`
	Message Message   `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

func encodeEnvelope(topic string, msg Message, now time.Time) ([]byte, error) {
	return json.Marshal(envelope{Topic: topic, Message: msg, SentAt: now.UTC()})
}

func decodeEnvelope(routing string, body []byte) (string, Message, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", Message{}, fmt.Errorf("unmarshal signal: %w", err)
	}
	topic := env.Topic
	if topic == "" {
		t, ok := topicFromRoutingKey(routing)
		if !ok {
			return "", Message{}, fmt.Errorf("signal without topic (routing key %q)", routing)
		}
		topic = t
	}
	return topic, env.Message, nil
}

// RabbitChannel relays signals through a RabbitMQ topic exchange so tabs
// served by different storefront replicas still see each other's signals.
// Each replica consumes every signal on a private queue and fans it out to
// its local subscribers.
type RabbitChannel struct {
	local *Hub
	conn  *amqp.Connection
	pubMu sync.Mutex
	pub   *amqp.Channel
	sub   *amqp.Channel
	log   *logrus.Logger
	done  chan struct{}
}

func DialRabbit(url string, logger *logrus.Logger) (*RabbitChannel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	rc, err := NewRabbitChannel(conn, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return rc, nil
}

func NewRabbitChannel(conn *amqp.Connection, logger *logrus.Logger) (*RabbitChannel, error) {
	pub, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	if err := declareSignalsExchange(pub); err != nil {
		return nil, fmt.Errorf("declare %s: %w", SignalsExchange, err)
	}

	sub, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open consume channel: %w", err)
	}
	q, err := sub.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	if err := sub.QueueBind(q.Name, signalRoutingKey+"#", SignalsExchange, false, nil); err != nil {
		return nil, fmt.Errorf("queue bind: %w", err)
	}
	deliveries, err := sub.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	rc := &RabbitChannel{
		local: NewHub(logger),
		conn:  conn,
		pub:   pub,
		sub:   sub,
		log:   logger,
		done:  make(chan struct{}),
	}
	go rc.relay(deliveries)
	logger.Infof("RabbitChannel: consuming signals from exchange %s on queue %s", SignalsExchange, q.Name)
	return rc, nil
}

func declareSignalsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		SignalsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

func (rc *RabbitChannel) relay(deliveries <-chan amqp.Delivery) {
	defer close(rc.done)
	for d := range deliveries {
		topic, msg, err := decodeEnvelope(d.RoutingKey, d.Body)
		if err != nil {
			rc.log.Warnf("RabbitChannel: dropping malformed signal: %v", err)
			continue
		}
		if err := rc.local.Publish(context.Background(), topic, msg); err != nil {
			rc.log.Debugf("RabbitChannel: local fan-out stopped: %v", err)
			return
		}
	}
	rc.log.Info("RabbitChannel: delivery channel closed")
}

func (rc *RabbitChannel) Publish(ctx context.Context, topic string, msg Message) error {
	body, err := encodeEnvelope(topic, msg, time.Now())
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rc.pubMu.Lock()
	defer rc.pubMu.Unlock()
	return rc.pub.PublishWithContext(
		pubCtx,
		SignalsExchange,
		routingKey(topic),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (rc *RabbitChannel) Subscribe(ctx context.Context, topic string) (<-chan Message, func(), error) {
	return rc.local.Subscribe(ctx, topic)
}

func (rc *RabbitChannel) Close() error {
	_ = rc.local.Close()
	if err := rc.sub.Close(); err != nil {
		rc.log.Warnf("RabbitChannel: close consume channel: %v", err)
	}
	<-rc.done
	if err := rc.pub.Close(); err != nil {
		rc.log.Warnf("RabbitChannel: close publish channel: %v", err)
	}
	return rc.conn.Close()
}
