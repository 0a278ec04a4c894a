package provider

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/artdesignbySF/MadameSatoshi/events/kafka"
	"github.com/artdesignbySF/MadameSatoshi/pkg/providers"
)

// AuditEvent is the envelope published to the audit topic. Details
// holds the typed per-action payload.
type AuditEvent struct {
	Timestamp     time.Time   `json:"timestamp"`
	SessionID     string      `json:"session_id"`
	SourceService string      `json:"source_service"`
	Action        string      `json:"action"`
	Details       interface{} `json:"details"`
}

const sourceService = "madame-satoshi"

// KafkaEventLog implements providers.EventLog on a Kafka audit topic.
// A nil producer disables publishing; settlement must never depend on
// the audit pipeline being up.
type KafkaEventLog struct {
	producer   *kafka.Producer
	auditTopic string
	logger     zerolog.Logger
}

// NewKafkaEventLog creates an event log. producer may be nil when no
// brokers are configured.
func NewKafkaEventLog(producer *kafka.Producer, auditTopic string, logger zerolog.Logger) *KafkaEventLog {
	return &KafkaEventLog{
		producer:   producer,
		auditTopic: auditTopic,
		logger:     logger.With().Str("component", "event_log").Logger(),
	}
}

func (l *KafkaEventLog) publish(sessionID, action string, details interface{}, ts time.Time) error {
	if l.producer == nil {
		l.logger.Debug().Str("action", action).Msg("Kafka producer not configured, skipping audit event")
		return nil
	}

	event := AuditEvent{
		Timestamp:     ts,
		SessionID:     sessionID,
		SourceService: sourceService,
		Action:        action,
		Details:       details,
	}

	if err := l.producer.SendMessage(l.auditTopic, sessionID, event); err != nil {
		l.logger.Error().Err(err).Str("action", action).Msg("Failed to publish audit event")
		return err
	}
	return nil
}

// LogPlay publishes a settled play.
func (l *KafkaEventLog) LogPlay(ctx context.Context, event *providers.PlayEvent) error {
	action := "play"
	if event.IsJackpot {
		action = "jackpot"
	} else if event.IsBonus {
		action = "bonus"
	}
	return l.publish(event.SessionID, action, event, event.Timestamp)
}

// LogWithdrawal publishes a withdrawal lifecycle step.
func (l *KafkaEventLog) LogWithdrawal(ctx context.Context, event *providers.WithdrawalEvent) error {
	return l.publish(event.SessionID, "withdrawal_"+event.Action, event, event.Timestamp)
}

// LogDeposit publishes a credited deposit.
func (l *KafkaEventLog) LogDeposit(ctx context.Context, event *providers.DepositEvent) error {
	return l.publish(event.SessionID, "deposit", event, event.Timestamp)
}

var _ providers.EventLog = (*KafkaEventLog)(nil)
