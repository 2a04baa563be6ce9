package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	pkglog "github.com/campusmarket/marketplace/pkg/log"
)

// KafkaPubSub maps channels onto topics. Publish waits for the broker
// acknowledgement; subscribers store an offset only after the event has
// been handed to the reader.
type KafkaPubSub struct {
	cfg      KafkaConfig
	producer *kafka.Producer
	admin    *kafka.AdminClient
	drained  chan struct{}

	topics sync.Map

	mu        sync.Mutex
	consumers map[string]*kafkaConsumer
	closed    bool
}

type kafkaConsumer struct {
	consumer *kafka.Consumer
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewKafkaPubSub(cfg KafkaConfig) (*KafkaPubSub, error) {
	cfg = cfg.withDefaults()

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":   cfg.Brokers,
		"acks":                "all",
		"enable.idempotence":  true,
		"linger.ms":           5,
		"compression.type":    "snappy",
		"delivery.timeout.ms": int(cfg.DeliveryTimeout.Milliseconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	admin, err := kafka.NewAdminClientFromProducer(p)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("kafka admin client: %w", err)
	}

	k := &KafkaPubSub{
		cfg:       cfg,
		producer:  p,
		admin:     admin,
		drained:   make(chan struct{}),
		consumers: make(map[string]*kafkaConsumer),
	}
	go k.watchProducer()
	return k, nil
}

// watchProducer logs client-level errors. Delivery reports go to the
// per-message channel passed in Publish.
func (k *KafkaPubSub) watchProducer() {
	defer close(k.drained)
	l := pkglog.L()
	for e := range k.producer.Events() {
		if kerr, ok := e.(kafka.Error); ok {
			l.Error().Err(kerr).Bool("fatal", kerr.IsFatal()).Msg("kafka producer error")
		}
	}
}

func (k *KafkaPubSub) ensureTopic(ctx context.Context, topic string) error {
	if _, ok := k.topics.Load(topic); ok {
		return nil
	}

	results, err := k.admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     k.cfg.Partitions,
		ReplicationFactor: k.cfg.ReplicationFactor,
	}})
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range results {
		if code := r.Error.Code(); code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Error)
		}
	}

	k.topics.Store(topic, struct{}{})
	return nil
}

func (k *KafkaPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	topic, err := ChannelToTopic(channel)
	if err != nil {
		return err
	}
	if err := k.ensureTopic(ctx, topic); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str("topic", topic).Msg("kafka topic not confirmed, producing anyway")
	}

	data, err := encodeEvent(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	delivery := make(chan kafka.Event, 1)
	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.Key),
		Value:          data,
		Headers:        []kafka.Header{{Key: "event-type", Value: []byte(event.Type)}},
	}, delivery)
	if err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}

	select {
	case e := <-delivery:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery report %T", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("deliver to %s: %w", topic, m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		// The producer still owns the message and may deliver it later.
		return ctx.Err()
	}
}

func (k *KafkaPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	topic, err := ChannelToTopic(channel)
	if err != nil {
		return nil, err
	}
	if err := k.ensureTopic(ctx, topic); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Str("topic", topic).Msg("kafka topic not confirmed, subscribing anyway")
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil, errors.New("pubsub: kafka client closed")
	}
	if prev, ok := k.consumers[channel]; ok {
		prev.stop()
		delete(k.consumers, channel)
	}

	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":        k.cfg.Brokers,
		"group.id":                 k.cfg.GroupID,
		"auto.offset.reset":        k.cfg.AutoOffsetReset,
		"enable.auto.commit":       true,
		"enable.auto.offset.store": false,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	if err := c.Subscribe(topic, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	kc := &kafkaConsumer{consumer: c, cancel: cancel, done: make(chan struct{})}
	k.consumers[channel] = kc

	out := make(chan *Event, streamBuffer)
	go kc.run(runCtx, out)
	return out, nil
}

func (kc *kafkaConsumer) run(ctx context.Context, out chan<- *Event) {
	defer close(kc.done)
	defer close(out)

	l := pkglog.L()
	for ctx.Err() == nil {
		switch e := kc.consumer.Poll(250).(type) {
		case nil:
		case *kafka.Message:
			event, err := decodeEvent(e.Value)
			if err != nil {
				l.Error().Err(err).
					Str("topic", *e.TopicPartition.Topic).
					Int64("offset", int64(e.TopicPartition.Offset)).
					Msg("dropping undecodable kafka message")
				kc.store(e)
				continue
			}
			select {
			case out <- event:
				kc.store(e)
			case <-ctx.Done():
				return
			}
		case kafka.Error:
			l.Error().Err(e).Bool("fatal", e.IsFatal()).Msg("kafka consumer error")
			if e.IsFatal() {
				return
			}
		}
	}
}

func (kc *kafkaConsumer) store(m *kafka.Message) {
	if _, err := kc.consumer.StoreMessage(m); err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Msg("failed to store kafka offset")
	}
}

func (kc *kafkaConsumer) stop() error {
	kc.cancel()
	<-kc.done
	return kc.consumer.Close()
}

func (k *KafkaPubSub) Unsubscribe(_ context.Context, channel string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	kc, ok := k.consumers[channel]
	if !ok {
		return nil
	}
	delete(k.consumers, channel)
	if err := kc.stop(); err != nil {
		return fmt.Errorf("close consumer for %s: %w", channel, err)
	}
	return nil
}

// Close stops every consumer, then flushes pending publishes.
func (k *KafkaPubSub) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	var errs []error
	for channel, kc := range k.consumers {
		if err := kc.stop(); err != nil {
			errs = append(errs, fmt.Errorf("close consumer for %s: %w", channel, err))
		}
		delete(k.consumers, channel)
	}
	k.mu.Unlock()

	if left := k.producer.Flush(int(k.cfg.DeliveryTimeout.Milliseconds())); left > 0 {
		errs = append(errs, fmt.Errorf("%d kafka messages not delivered before close", left))
	}
	k.admin.Close()
	k.producer.Close()
	<-k.drained
	return errors.Join(errs...)
}
