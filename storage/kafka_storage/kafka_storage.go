package kafka_storage

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	"github.com/lidofinance/govtx/storage"
)

var _ storage.Storage = (*KafkaStorage)(nil)

const (
	kafkaMinBytes    = 10
	kafkaMaxBytes    = 10e6
	kafkaMaxAttempts = 16
	readWindow       = 10 * time.Second
)

// KafkaStorage publishes journal records to a topic keyed by flow id,
// so the records of one flow keep their order inside a partition.
type KafkaStorage struct {
	reader                       *kafka.Reader
	writer                       *kafka.Writer
	tlsConfig                    *tls.Config
	producerCreds, consumerCreds *plain.Mechanism
	brokerEndpoint, topic        string
	timeout                      time.Duration
}

func NewKafkaStorage(
	brokerEndpoint,
	topic string,
	tlsConfig *tls.Config,
	producerCreds,
	consumerCreds *plain.Mechanism,
	timeout time.Duration,
) (*KafkaStorage, error) {
	ks := &KafkaStorage{
		brokerEndpoint: brokerEndpoint,
		topic:          topic,
		tlsConfig:      tlsConfig,
		producerCreds:  producerCreds,
		consumerCreds:  consumerCreds,
		timeout:        timeout,
	}
	ks.writer = ks.newWriter()

	return ks, nil
}

func (ks *KafkaStorage) Close() error {
	if ks.reader != nil {
		if err := ks.reader.Close(); err != nil {
			return fmt.Errorf("failed to close reader: %w", err)
		}
	}

	if ks.writer != nil {
		if err := ks.writer.Close(); err != nil {
			return fmt.Errorf("failed to close writer: %w", err)
		}
	}

	return nil
}

func (ks *KafkaStorage) Send(messages ...storage.Message) error {
	kafkaMessages, err := storageToKafkaMessages(messages...)
	if err != nil {
		return fmt.Errorf("failed to convert journal messages: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ks.timeout)
	defer cancel()

	if err := ks.writer.WriteMessages(ctx, kafkaMessages...); err != nil {
		return fmt.Errorf("failed to write messages: %w", err)
	}

	return nil
}

// GetMessages reads the topic from the given offset until no new records arrive for readWindow
func (ks *KafkaStorage) GetMessages(offset uint64) ([]storage.Message, error) {
	if ks.reader != nil {
		if err := ks.reader.Close(); err != nil {
			return nil, fmt.Errorf("failed to close reader: %w", err)
		}
	}
	ks.reader = ks.newReader()
	if err := ks.reader.SetOffset(int64(offset)); err != nil {
		return nil, fmt.Errorf("failed to set reader offset: %w", err)
	}

	var messages []storage.Message
	for {
		ctx, cancel := context.WithTimeout(context.Background(), readWindow)
		kafkaMessage, err := ks.reader.ReadMessage(ctx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return nil, fmt.Errorf("failed to read message: %w", err)
		}

		var message storage.Message
		if err = json.Unmarshal(kafkaMessage.Value, &message); err != nil {
			return nil, fmt.Errorf("failed to unmarshal a message %s: %w", string(kafkaMessage.Value), err)
		}
		message.Offset = uint64(kafkaMessage.Offset)
		messages = append(messages, message)
	}

	return messages, nil
}

// storageToKafkaMessages assigns ids to the messages and encodes them
func storageToKafkaMessages(messages ...storage.Message) ([]kafka.Message, error) {
	kafkaMessages := make([]kafka.Message, len(messages))
	for i := range messages {
		if messages[i].ID == "" {
			messages[i].ID = uuid.New().String()
		}
		data, err := json.Marshal(messages[i])
		if err != nil {
			return kafkaMessages, fmt.Errorf("failed to marshal a message %s: %w", messages[i].ID, err)
		}
		kafkaMessages[i] = kafka.Message{Key: []byte(messages[i].FlowID), Value: data}
	}

	return kafkaMessages, nil
}

func (ks *KafkaStorage) newReader() *kafka.Reader {
	dialer := &kafka.Dialer{
		Timeout:   ks.timeout,
		DualStack: true,
		TLS:       ks.tlsConfig,
	}
	if ks.consumerCreds != nil {
		dialer.SASLMechanism = ks.consumerCreds
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{ks.brokerEndpoint},
		Topic:       ks.topic,
		MinBytes:    kafkaMinBytes,
		MaxBytes:    kafkaMaxBytes,
		MaxAttempts: kafkaMaxAttempts,
		Dialer:      dialer,
	})
}

func (ks *KafkaStorage) newWriter() *kafka.Writer {
	transport := &kafka.Transport{
		Dial: (&net.Dialer{
			Timeout: ks.timeout,
		}).DialContext,
		TLS: ks.tlsConfig,
	}
	if ks.producerCreds != nil {
		transport.SASL = ks.producerCreds
	}

	return &kafka.Writer{
		Addr:         kafka.TCP(ks.brokerEndpoint),
		Topic:        ks.topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  kafkaMaxAttempts,
		BatchTimeout: ks.timeout,
		ReadTimeout:  ks.timeout,
		WriteTimeout: ks.timeout,
		Transport:    transport,
	}
}
