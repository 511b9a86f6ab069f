package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

const LoanTopic = "library.loans"

type Config struct {
	Enable bool     `yaml:"enable" envconfig:"KAFKA_ENABLE" default:"false"`
	Addrs  []string `yaml:"addrs" envconfig:"KAFKA_ADDRS" default:"localhost:9092"`
	Topic  string   `yaml:"topic" envconfig:"KAFKA_TOPIC" default:"library.loans"`
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true
	defaultCfg.Producer.Retry.Max = 3
	defaultCfg.Producer.Timeout = 5 * time.Second

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}

type EventType string

const (
	LoanStarted EventType = "loan.started"
	LoanClosed  EventType = "loan.closed"
)

// LoanEvent is published after a loan transaction commits.
type LoanEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	LoanID     int       `json:"loan_id"`
	BookID     int       `json:"book_id"`
	UserID     int       `json:"user_id"`
	LoanDate   string    `json:"loan_date"`
	ReturnDate *string   `json:"return_date,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
