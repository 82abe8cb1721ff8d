// Package processor routes incoming Kafka signals to the lifecycle service.
// This is the intake layer: case activity arrives as Debezium CDC change
// events, and evidence/tip/lead/DNA signals arrive as plain JSON events.
// Delivery is at-least-once, so every message is deduped on a payload
// fingerprint before it is applied.
package processor

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/PresidentAnderson/locate-connect-sub007/config"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/kafka"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/lifecycle"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/metrics"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/redis"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

// Processor dispatches intake signals by topic
type Processor struct {
	logger  ectologger.Logger
	service *lifecycle.Service
	redis   *redis.Client

	caseActivityTopic string
	evidenceTopic     string
	tipsTopic         string
	leadsTopic        string
	dnaResultsTopic   string
	dedupeTTL         time.Duration
}

// NewProcessor creates a new signal processor
func NewProcessor(logger ectologger.Logger, service *lifecycle.Service, redisClient *redis.Client, cfg config.Config) *Processor {
	dedupeTTL := cfg.SignalDedupeTTL
	if dedupeTTL <= 0 {
		dedupeTTL = 24 * time.Hour
	}

	return &Processor{
		logger:            logger,
		service:           service,
		redis:             redisClient,
		caseActivityTopic: cfg.KafkaCaseActivityTopic,
		evidenceTopic:     cfg.KafkaEvidenceTopic,
		tipsTopic:         cfg.KafkaTipsTopic,
		leadsTopic:        cfg.KafkaLeadsTopic,
		dnaResultsTopic:   cfg.KafkaDNAResultsTopic,
		dedupeTTL:         dedupeTTL,
	}
}

// ProcessMessage handles one incoming Kafka message. Returning an error
// leaves the offset uncommitted so the message is redelivered; malformed
// payloads are logged and dropped instead.
func (p *Processor) ProcessMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.ProcessMessage")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"key":    msg.Key,
		"topic":  msg.Topic,
		"offset": msg.Offset,
	})

	if len(msg.Value) == 0 {
		log.Debug("Skipping tombstone message")
		return nil
	}

	fresh, err := p.redis.MarkSeen(ctx, msg.Fingerprint(), p.dedupeTTL)
	if err != nil {
		// Dedupe is an optimization; handlers are idempotent without it
		log.WithError(err).Warn("Dedupe check failed, processing anyway")
	} else if !fresh {
		metrics.SignalsDedupedTotal.Inc()
		log.Debug("Skipping duplicate signal")
		return nil
	}

	switch msg.Topic {
	case p.caseActivityTopic:
		err = p.processCaseActivity(ctx, msg, log)
	case p.evidenceTopic:
		err = p.processEvidence(ctx, msg, log)
	case p.tipsTopic:
		err = p.processTip(ctx, msg, log)
	case p.leadsTopic:
		err = p.processLead(ctx, msg, log)
	case p.dnaResultsTopic:
		err = p.processDNAResult(ctx, msg, log)
	default:
		log.Warn("Unknown topic, skipping message")
		return nil
	}

	status := "ok"
	if err != nil {
		status = "failed"
	}
	metrics.SignalsConsumedTotal.WithLabelValues(msg.Topic, status).Inc()
	return err
}

// processCaseActivity applies a CDC change event from the case repository
func (p *Processor) processCaseActivity(ctx context.Context, msg *kafka.IncomingMessage, log ectologger.Logger) error {
	ctx, span := tracing.StartSpan(ctx, "processor.processCaseActivity")
	defer span.End()

	envelope, err := kafka.ParseDebeziumMessage(msg.Value)
	if err != nil {
		log.WithError(err).Error("Failed to parse CDC envelope, dropping message")
		return nil
	}

	row, err := envelope.Payload.ParseCaseRow()
	if err != nil {
		log.WithError(err).Error("Failed to parse case row from CDC envelope, dropping message")
		return nil
	}
	if row == nil {
		log.Debug("CDC envelope carried no row, skipping")
		return nil
	}

	tenantID := row.TenantID
	if tenantID == "" {
		tenantID = msg.GetTenantID()
	}
	if tenantID == "" {
		log.Error("Missing tenant_id in CDC event, dropping message")
		return nil
	}

	lastLead, lastTip, lastActivity := row.ActivityTimes()
	deleted := row.IsDeleted() || envelope.Payload.IsDelete()

	return p.service.HandleCaseActivity(ctx, tenantID, row.ID, row.ToFacts(), lastLead, lastTip, lastActivity, deleted)
}

func (p *Processor) processEvidence(ctx context.Context, msg *kafka.IncomingMessage, log ectologger.Logger) error {
	ctx, span := tracing.StartSpan(ctx, "processor.processEvidence")
	defer span.End()

	evt, err := msg.ParseEvidenceAdded()
	if err != nil {
		log.WithError(err).Error("Failed to parse evidence signal, dropping message")
		return nil
	}
	if evt.TenantID == "" || evt.CaseID == "" {
		log.Error("Evidence signal missing tenant_id or case_id, dropping message")
		return nil
	}

	significance := models.EvidenceSignificance(evt.Significance)
	switch significance {
	case models.SignificanceCritical, models.SignificanceHigh, models.SignificanceMedium, models.SignificanceLow:
	default:
		significance = models.SignificanceMedium
	}

	receivedAt := evt.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = msg.Timestamp
	}

	return p.service.HandleEvidenceAdded(ctx, evt.TenantID, evt.CaseID, models.CreateEvidenceRequest{
		Description:  evt.Description,
		Significance: significance,
		Source:       evt.Source,
		ReceivedAt:   &receivedAt,
	})
}

func (p *Processor) processTip(ctx context.Context, msg *kafka.IncomingMessage, log ectologger.Logger) error {
	ctx, span := tracing.StartSpan(ctx, "processor.processTip")
	defer span.End()

	evt, err := msg.ParseTipReceived()
	if err != nil {
		log.WithError(err).Error("Failed to parse tip signal, dropping message")
		return nil
	}
	if evt.TenantID == "" || evt.CaseID == "" {
		log.Error("Tip signal missing tenant_id or case_id, dropping message")
		return nil
	}

	receivedAt := evt.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = msg.Timestamp
	}

	return p.service.HandleTipReceived(ctx, evt.TenantID, evt.CaseID, evt.TipID, evt.CampaignID, receivedAt)
}

func (p *Processor) processLead(ctx context.Context, msg *kafka.IncomingMessage, log ectologger.Logger) error {
	ctx, span := tracing.StartSpan(ctx, "processor.processLead")
	defer span.End()

	evt, err := msg.ParseLeadReceived()
	if err != nil {
		log.WithError(err).Error("Failed to parse lead signal, dropping message")
		return nil
	}
	if evt.TenantID == "" || evt.CaseID == "" {
		log.Error("Lead signal missing tenant_id or case_id, dropping message")
		return nil
	}

	receivedAt := evt.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = msg.Timestamp
	}

	return p.service.HandleLeadReceived(ctx, evt.TenantID, evt.CaseID, evt.LeadID, evt.CampaignID, receivedAt)
}

func (p *Processor) processDNAResult(ctx context.Context, msg *kafka.IncomingMessage, log ectologger.Logger) error {
	ctx, span := tracing.StartSpan(ctx, "processor.processDNAResult")
	defer span.End()

	evt, err := msg.ParseDNAResult()
	if err != nil {
		log.WithError(err).Error("Failed to parse DNA result signal, dropping message")
		return nil
	}
	if evt.TenantID == "" || evt.LabReferenceID == "" {
		log.Error("DNA result missing tenant_id or lab_reference_id, dropping message")
		return nil
	}

	resultAt := evt.ResultAt
	if resultAt.IsZero() {
		resultAt = msg.Timestamp
	}

	return p.service.HandleDNAResult(ctx, evt.TenantID, evt.LabReferenceID, models.DNAStatus(evt.Outcome), evt.Notes, resultAt)
}
