package jobs

import (
	"context"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/multierr"

	"github.com/ctfer-io/covalic/pkg/model"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string

	CBOnStateChange func(name string, from, to gobreaker.State)
}

func (cfg KafkaConfig) validate() error {
	if strings.TrimSpace(cfg.Topic) == "" {
		return errors.New("kafka topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return errors.New("at least one kafka broker is required")
	}
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes jobs as JSON messages keyed by the job ID.
// Writes go through a circuit breaker so an unavailable cluster fails
// scheduling fast.
type Kafka struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

var _ Scheduler = (*Kafka)(nil)

func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newKafkaWithWriter(cfg, &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}), nil
}

func newKafkaWithWriter(cfg KafkaConfig, w messageWriter) *Kafka {
	return &Kafka{
		writer: w,
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:          "kafka jobs circuit breaker",
			OnStateChange: cfg.CBOnStateChange,
		}),
	}
}

func (k *Kafka) Schedule(ctx context.Context, job *model.Job) error {
	b, err := json.Marshal(NewMessage(job))
	if err != nil {
		return err
	}
	_, err = k.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, k.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(job.ID),
			Value: b,
		})
	})
	return errors.Wrap(err, "publishing job")
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

// KafkaSource consumes jobs of a topic as part of a consumer group.
type KafkaSource struct {
	reader messageReader
}

var _ Source = (*KafkaSource)(nil)

func NewKafkaSource(cfg KafkaConfig) (*KafkaSource, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.GroupID == "" {
		return nil, errors.New("kafka consumer group must not be empty")
	}
	return &KafkaSource{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			GroupID: cfg.GroupID,
		}),
	}, nil
}

// Consume commits each message once handled, whatever the outcome:
// failures are reported on the job rather than retried.
// Undecodable messages are committed and skipped.
func (ks *KafkaSource) Consume(ctx context.Context, handle func(context.Context, Message) error) error {
	for {
		km, err := ks.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		var msg Message
		if uerr := json.Unmarshal(km.Value, &msg); uerr == nil {
			_ = handle(ctx, msg)
		}

		if err := ks.reader.CommitMessages(ctx, km); err != nil {
			return err
		}
	}
}

func (ks *KafkaSource) Close() error {
	return ks.reader.Close()
}

// Ping dials the first reachable broker.
func Ping(ctx context.Context, brokers []string) error {
	var merr error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			merr = multierr.Append(merr, err)
			continue
		}
		return conn.Close()
	}
	if merr == nil {
		return errors.New("no kafka broker configured")
	}
	return merr
}
