package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	kafka "github.com/segmentio/kafka-go"

	appconfig "oiflow/config"
	"oiflow/logger"
	"oiflow/models"
)

// KafkaWriter streams every classified event to a Kafka topic as JSON,
// keyed by underlying so all activity of one name lands on one partition.
type KafkaWriter struct {
	config    *appconfig.Config
	eventChan <-chan models.ClassifiedEvent
	writer    *kafka.Writer
	ctx       context.Context
	wg        *sync.WaitGroup
	mu        sync.RWMutex
	running   bool
	log       *logger.Log
}

func NewKafkaWriter(cfg *appconfig.Config, eventChan <-chan models.ClassifiedEvent) (*KafkaWriter, error) {
	if len(cfg.Storage.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	kw := &KafkaWriter{
		config:    cfg,
		eventChan: eventChan,
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Storage.Kafka.Brokers...),
			Topic:    cfg.Storage.Kafka.Topic,
			Balancer: &kafka.LeastBytes{},
		},
		wg:  &sync.WaitGroup{},
		log: logger.GetLogger(),
	}
	kw.log.WithComponent("kafka_writer").WithFields(logger.Fields{
		"brokers": cfg.Storage.Kafka.Brokers,
		"topic":   cfg.Storage.Kafka.Topic,
	}).Debug("kafka writer initialized")
	return kw, nil
}

func (kw *KafkaWriter) Start(ctx context.Context) error {
	kw.mu.Lock()
	if kw.running {
		kw.mu.Unlock()
		return fmt.Errorf("kafka writer already running")
	}
	kw.running = true
	kw.ctx = ctx
	kw.mu.Unlock()

	kw.log.WithComponent("kafka_writer").Debug("starting kafka writer")

	kw.wg.Add(1)
	go kw.run()

	return nil
}

func (kw *KafkaWriter) run() {
	defer kw.wg.Done()

	for {
		select {
		case <-kw.ctx.Done():
			return
		case event, ok := <-kw.eventChan:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				kw.log.WithComponent("kafka_writer").WithError(err).Warn("failed to marshal event")
				continue
			}
			msg := kafka.Message{
				Key:   []byte(event.Underlying),
				Value: data,
			}
			if err := kw.writer.WriteMessages(kw.ctx, msg); err != nil {
				kw.log.WithComponent("kafka_writer").WithError(err).Warn("failed to write message")
			} else {
				logger.IncrementKafkaWrite(len(data))
				kw.log.WithComponent("kafka_writer").WithFields(logger.Fields{
					"symbol": event.Symbol,
					"flow":   event.Flow,
				}).Debug("event written to kafka")
			}
		}
	}
}

// Stop waits for the worker to drain the event channel, then closes the
// connection. The channel should be closed before calling Stop.
func (kw *KafkaWriter) Stop() {
	kw.mu.Lock()
	kw.running = false
	kw.mu.Unlock()

	kw.log.WithComponent("kafka_writer").Debug("stopping kafka writer")
	kw.wg.Wait()
	kw.writer.Close()
	kw.log.WithComponent("kafka_writer").Debug("kafka writer stopped")
}
