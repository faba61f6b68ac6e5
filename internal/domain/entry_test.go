package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalMetadata_DispatchesByKind(t *testing.T) {
	transferID := uuid.New()
	counterparty := uuid.New()

	tests := []struct {
		name string
		kind EntryKind
		in   Metadata
	}{
		{"credit", EntryCredit, CreditMetadata{PaymentIntentID: "pi_123"}},
		{"debit", EntryDebit, DebitMetadata{PayoutID: "po_456"}},
		{"p2p sent", EntryP2PSent, P2PSentMetadata{TransferID: transferID, CounterpartyID: counterparty}},
		{"p2p received", EntryP2PReceived, P2PReceivedMetadata{TransferID: transferID, CounterpartyID: counterparty}},
		{"fee", EntryFee, FeeMetadata{RelatedEntryID: transferID}},
		{"refund", EntryRefund, RefundMetadata{OriginalEntryID: transferID, PaymentIntentID: "pi_789"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.in)
			require.NoError(t, err)

			got, err := UnmarshalMetadata(tc.kind, data)
			require.NoError(t, err)
			assert.Equal(t, tc.in, got)
			assert.Equal(t, tc.kind, got.Kind())
		})
	}
}

func TestUnmarshalMetadata_UnknownKind(t *testing.T) {
	_, err := UnmarshalMetadata(EntryKind("chargeback"), []byte(`{}`))
	require.Error(t, err)
}

func TestUnmarshalMetadata_EmptyPayload(t *testing.T) {
	got, err := UnmarshalMetadata(EntryCredit, nil)
	require.NoError(t, err)
	assert.Equal(t, CreditMetadata{}, got)
}

func TestEntryKindIsValid(t *testing.T) {
	for _, k := range []EntryKind{EntryCredit, EntryDebit, EntryP2PSent, EntryP2PReceived, EntryFee, EntryRefund} {
		assert.True(t, k.IsValid(), string(k))
	}
	assert.False(t, EntryKind("").IsValid())
	assert.False(t, EntryKind("chargeback").IsValid())
}
