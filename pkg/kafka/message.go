package kafka

import (
	"encoding/json"
	"time"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/fingerprint"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string
	TraceState  string
}

// GetTenantID returns the tenant id from the headers. Signal payloads also
// carry tenant_id; the header wins when both are present.
func (m *IncomingMessage) GetTenantID() string {
	return m.Headers["tenant_id"]
}

// Fingerprint returns a deterministic hash of the message payload, used as
// the dedupe key for at-least-once delivery.
func (m *IncomingMessage) Fingerprint() string {
	fp, err := fingerprint.GenerateFromJSON(m.Value)
	if err != nil {
		// non-JSON payloads dedupe on the raw bytes
		return fingerprint.Generate(map[string]any{"raw": string(m.Value)})
	}
	return fp
}

// EvidenceAddedMessage announces a new piece of evidence for a case
type EvidenceAddedMessage struct {
	TenantID     string    `json:"tenant_id"`
	CaseID       string    `json:"case_id"`
	EvidenceType string    `json:"evidence_type"`
	Significance string    `json:"significance"`
	Description  string    `json:"description,omitempty"`
	Source       string    `json:"source,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
}

// TipReceivedMessage announces a tip against a case
type TipReceivedMessage struct {
	TenantID   string    `json:"tenant_id"`
	CaseID     string    `json:"case_id"`
	TipID      string    `json:"tip_id"`
	Channel    string    `json:"channel,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	CampaignID string    `json:"campaign_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// LeadReceivedMessage announces an investigative lead against a case
type LeadReceivedMessage struct {
	TenantID   string    `json:"tenant_id"`
	CaseID     string    `json:"case_id"`
	LeadID     string    `json:"lead_id"`
	Summary    string    `json:"summary,omitempty"`
	CampaignID string    `json:"campaign_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// DNAResultMessage carries a forensic lab outcome, keyed by the lab
// reference id handed out at submission time
type DNAResultMessage struct {
	TenantID       string    `json:"tenant_id"`
	LabReferenceID string    `json:"lab_reference_id"`
	Outcome        string    `json:"outcome"` // match_found | no_match
	Notes          string    `json:"notes,omitempty"`
	ResultAt       time.Time `json:"result_at"`
}

// ParseEvidenceAdded parses the payload as an evidence-added signal
func (m *IncomingMessage) ParseEvidenceAdded() (*EvidenceAddedMessage, error) {
	var msg EvidenceAddedMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return nil, err
	}
	if msg.TenantID == "" {
		msg.TenantID = m.GetTenantID()
	}
	return &msg, nil
}

// ParseTipReceived parses the payload as a tip signal
func (m *IncomingMessage) ParseTipReceived() (*TipReceivedMessage, error) {
	var msg TipReceivedMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return nil, err
	}
	if msg.TenantID == "" {
		msg.TenantID = m.GetTenantID()
	}
	return &msg, nil
}

// ParseLeadReceived parses the payload as a lead signal
func (m *IncomingMessage) ParseLeadReceived() (*LeadReceivedMessage, error) {
	var msg LeadReceivedMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return nil, err
	}
	if msg.TenantID == "" {
		msg.TenantID = m.GetTenantID()
	}
	return &msg, nil
}

// ParseDNAResult parses the payload as a lab result signal
func (m *IncomingMessage) ParseDNAResult() (*DNAResultMessage, error) {
	var msg DNAResultMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return nil, err
	}
	if msg.TenantID == "" {
		msg.TenantID = m.GetTenantID()
	}
	return &msg, nil
}
