package kafka

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

// DebeziumEnvelope is the standard Debezium CDC message format
type DebeziumEnvelope struct {
	Schema  json.RawMessage `json:"schema,omitempty"`
	Payload DebeziumPayload `json:"payload"`
}

// DebeziumPayload contains the before/after state of a row
type DebeziumPayload struct {
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
	Source DebeziumSource  `json:"source"`
	Op     string          `json:"op"` // c=create, u=update, d=delete, r=read (snapshot)
	TsMs   int64           `json:"ts_ms"`
	TsUsMs int64           `json:"ts_us,omitempty"`
	TsNsMs int64           `json:"ts_ns,omitempty"`
}

// DebeziumSource contains metadata about the source of the change
type DebeziumSource struct {
	Version   string `json:"version"`
	Connector string `json:"connector"`
	Name      string `json:"name"`
	TsMs      int64  `json:"ts_ms"`
	Snapshot  string `json:"snapshot,omitempty"`
	Db        string `json:"db"`
	Sequence  string `json:"sequence,omitempty"`
	Schema    string `json:"schema"`
	Table     string `json:"table"`
	TxId      int64  `json:"txId,omitempty"`
	Lsn       int64  `json:"lsn,omitempty"`
	Xmin      *int64 `json:"xmin,omitempty"`
}

// IsCreate returns true if this is a create operation
func (p *DebeziumPayload) IsCreate() bool {
	return p.Op == "c" || p.Op == "r"
}

// IsUpdate returns true if this is an update operation
func (p *DebeziumPayload) IsUpdate() bool {
	return p.Op == "u"
}

// IsDelete returns true if this is a delete operation
func (p *DebeziumPayload) IsDelete() bool {
	return p.Op == "d"
}

// CaseRow is a row from the case repository's cases table as Debezium
// captures it. The column set is the subset this subsystem mirrors; extra
// columns in the payload are ignored.
type CaseRow struct {
	ID                 string          `json:"id"`
	TenantID           string          `json:"tenant_id"`
	PersonName         string          `json:"person_name"`
	AgeAtDisappearance *int            `json:"age_at_disappearance"`
	Gender             string          `json:"gender"`
	IsMinor            bool            `json:"is_minor"`
	IsIndigenous       bool            `json:"is_indigenous"`
	HighVulnerability  bool            `json:"high_vulnerability"`
	Jurisdiction       string          `json:"jurisdiction"`
	Locality           string          `json:"locality"`
	Latitude           *float64        `json:"latitude"`
	Longitude          *float64        `json:"longitude"`
	DisappearedOn      *string         `json:"disappeared_on"`
	CircumstanceTags   json.RawMessage `json:"circumstance_tags"`
	LastLeadAt         *string         `json:"last_lead_at"`
	LastTipAt          *string         `json:"last_tip_at"`
	LastActivityAt     *string         `json:"last_activity_at"`
	CreatedAt          string          `json:"created_at"`
	UpdatedAt          string          `json:"updated_at"`
	DeletedAt          *string         `json:"deleted_at"`
}

// IsDeleted returns true if the row has been soft-deleted
func (r *CaseRow) IsDeleted() bool {
	return r.DeletedAt != nil && *r.DeletedAt != ""
}

// ToFacts converts the captured row into the local case-facts mirror
func (r *CaseRow) ToFacts() models.CaseFacts {
	facts := models.CaseFacts{
		PersonName:         r.PersonName,
		AgeAtDisappearance: r.AgeAtDisappearance,
		Gender:             r.Gender,
		IsMinor:            r.IsMinor,
		IsIndigenous:       r.IsIndigenous,
		HighVulnerability:  r.HighVulnerability,
		Jurisdiction:       r.Jurisdiction,
		Locality:           r.Locality,
		Latitude:           r.Latitude,
		Longitude:          r.Longitude,
		DisappearedOn:      parseDebeziumTimestampPtr(r.DisappearedOn),
	}

	if len(r.CircumstanceTags) > 0 && string(r.CircumstanceTags) != "null" {
		var tags []string
		if err := json.Unmarshal(r.CircumstanceTags, &tags); err == nil {
			facts.CircumstanceTags = tags
		}
	}

	return facts
}

// ActivityTimes returns the parsed activity watermarks from the row
func (r *CaseRow) ActivityTimes() (lastLead, lastTip, lastActivity *time.Time) {
	return parseDebeziumTimestampPtr(r.LastLeadAt),
		parseDebeziumTimestampPtr(r.LastTipAt),
		parseDebeziumTimestampPtr(r.LastActivityAt)
}

// parseDebeziumTimestamp parses a timestamp string from Debezium.
// Debezium can send timestamps in various formats depending on the connector config.
func parseDebeziumTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	// Try common formats Debezium uses
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999Z",
		"2006-01-02T15:04:05.999999",
		"2006-01-02 15:04:05.999999",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}

	return time.Time{}
}

// parseDebeziumTimestampPtr parses an optional timestamp string.
func parseDebeziumTimestampPtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t := parseDebeziumTimestamp(*s)
	if t.IsZero() {
		return nil
	}
	return &t
}

// ParseDebeziumMessage parses a raw Kafka message as a Debezium envelope
func ParseDebeziumMessage(data []byte) (*DebeziumEnvelope, error) {
	var envelope DebeziumEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

func unwrapJSONStringJSON(raw json.RawMessage) (json.RawMessage, error) {
	raw = json.RawMessage(bytes.TrimSpace(raw))
	if len(raw) == 0 {
		return raw, nil
	}
	if raw[0] != '"' {
		return raw, nil // already object/array/etc.
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return json.RawMessage(s), nil
}

// ParseCaseRow parses the After payload as a CaseRow. Delete events carry
// only Before, so those fall back to it.
func (p *DebeziumPayload) ParseCaseRow() (*CaseRow, error) {
	raw := p.After
	if len(raw) == 0 || string(raw) == "null" {
		raw = p.Before
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var row CaseRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}

	unwrapped, err := unwrapJSONStringJSON(row.CircumstanceTags)
	if err != nil {
		return nil, err
	}
	row.CircumstanceTags = unwrapped

	return &row, nil
}

// Timestamp returns the event timestamp
func (p *DebeziumPayload) Timestamp() time.Time {
	return time.UnixMilli(p.TsMs)
}
