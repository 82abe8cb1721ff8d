package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomingMessage_TenantHeader(t *testing.T) {
	msg := &IncomingMessage{
		Headers: map[string]string{"tenant_id": "tenant-a"},
		Value:   []byte(`{"case_id":"case-1"}`),
	}

	assert.Equal(t, "tenant-a", msg.GetTenantID())

	t.Run("header fills missing payload tenant", func(t *testing.T) {
		parsed, err := msg.ParseEvidenceAdded()
		require.NoError(t, err)
		assert.Equal(t, "tenant-a", parsed.TenantID)
		assert.Equal(t, "case-1", parsed.CaseID)
	})

	t.Run("payload tenant wins over empty header", func(t *testing.T) {
		bare := &IncomingMessage{
			Headers: map[string]string{},
			Value:   []byte(`{"tenant_id":"tenant-b","case_id":"case-2"}`),
		}
		parsed, err := bare.ParseEvidenceAdded()
		require.NoError(t, err)
		assert.Equal(t, "tenant-b", parsed.TenantID)
	})
}

func TestIncomingMessage_ParseSignals(t *testing.T) {
	t.Run("tip received", func(t *testing.T) {
		msg := &IncomingMessage{
			Headers: map[string]string{"tenant_id": "tenant-a"},
			Value:   []byte(`{"case_id":"case-1","tip_id":"tip-9","channel":"hotline","campaign_id":"camp-3","received_at":"2025-06-01T10:00:00Z"}`),
		}

		parsed, err := msg.ParseTipReceived()
		require.NoError(t, err)
		assert.Equal(t, "tip-9", parsed.TipID)
		assert.Equal(t, "hotline", parsed.Channel)
		assert.Equal(t, "camp-3", parsed.CampaignID)
		assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), parsed.ReceivedAt)
	})

	t.Run("dna result", func(t *testing.T) {
		msg := &IncomingMessage{
			Headers: map[string]string{"tenant_id": "tenant-a"},
			Value:   []byte(`{"lab_reference_id":"LAB-001","outcome":"match_found"}`),
		}

		parsed, err := msg.ParseDNAResult()
		require.NoError(t, err)
		assert.Equal(t, "LAB-001", parsed.LabReferenceID)
		assert.Equal(t, "match_found", parsed.Outcome)
	})

	t.Run("malformed payload", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{not json`)}

		_, err := msg.ParseLeadReceived()
		assert.Error(t, err)
	})
}

func TestIncomingMessage_Fingerprint(t *testing.T) {
	a := &IncomingMessage{Value: []byte(`{"case_id":"case-1","tip_id":"tip-1"}`)}
	// Same fields, different key order and whitespace.
	b := &IncomingMessage{Value: []byte(`{"tip_id": "tip-1", "case_id": "case-1"}`)}
	c := &IncomingMessage{Value: []byte(`{"case_id":"case-1","tip_id":"tip-2"}`)}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	t.Run("non-json payloads still fingerprint", func(t *testing.T) {
		raw := &IncomingMessage{Value: []byte("not json at all")}
		assert.NotEmpty(t, raw.Fingerprint())
		assert.Equal(t, raw.Fingerprint(), raw.Fingerprint())
	})
}
