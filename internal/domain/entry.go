package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EntryKind string

const (
	EntryCredit      EntryKind = "credit"
	EntryDebit       EntryKind = "debit"
	EntryP2PSent     EntryKind = "p2p_sent"
	EntryP2PReceived EntryKind = "p2p_received"
	EntryFee         EntryKind = "fee"
	EntryRefund      EntryKind = "refund"
)

func (k EntryKind) IsValid() bool {
	switch k {
	case EntryCredit, EntryDebit, EntryP2PSent, EntryP2PReceived, EntryFee, EntryRefund:
		return true
	}
	return false
}

// Metadata carries the correlation fields relevant to one entry kind. Each
// kind has its own concrete type so untyped maps never reach business logic.
type Metadata interface {
	Kind() EntryKind
}

// CreditMetadata correlates a top-up with the processor payment that funded it.
type CreditMetadata struct {
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
}

func (CreditMetadata) Kind() EntryKind { return EntryCredit }

// DebitMetadata correlates a withdrawal with the processor payout that moved
// the funds out.
type DebitMetadata struct {
	PayoutID string `json:"payout_id,omitempty"`
}

func (DebitMetadata) Kind() EntryKind { return EntryDebit }

type P2PSentMetadata struct {
	TransferID     uuid.UUID `json:"transfer_id"`
	CounterpartyID uuid.UUID `json:"counterparty_id"`
}

func (P2PSentMetadata) Kind() EntryKind { return EntryP2PSent }

type P2PReceivedMetadata struct {
	TransferID     uuid.UUID `json:"transfer_id"`
	CounterpartyID uuid.UUID `json:"counterparty_id"`
}

func (P2PReceivedMetadata) Kind() EntryKind { return EntryP2PReceived }

type FeeMetadata struct {
	RelatedEntryID uuid.UUID `json:"related_entry_id"`
}

func (FeeMetadata) Kind() EntryKind { return EntryFee }

type RefundMetadata struct {
	OriginalEntryID uuid.UUID `json:"original_entry_id"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
}

func (RefundMetadata) Kind() EntryKind { return EntryRefund }

// TransactionEntry is one immutable, signed movement of funds recorded
// against a user. The log is append-only: corrections are made via new
// offsetting entries, never by editing history.
type TransactionEntry struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Amount      int64 // minor units; positive = credit, negative = debit
	Kind        EntryKind
	Description string
	Metadata    Metadata
	CreatedAt   time.Time
}

// UnmarshalMetadata decodes the JSON metadata payload of a stored entry into
// the concrete type for its kind.
func UnmarshalMetadata(kind EntryKind, data []byte) (Metadata, error) {
	if len(data) == 0 {
		data = []byte("{}")
	}

	var (
		m   Metadata
		err error
	)
	switch kind {
	case EntryCredit:
		var v CreditMetadata
		err = json.Unmarshal(data, &v)
		m = v
	case EntryDebit:
		var v DebitMetadata
		err = json.Unmarshal(data, &v)
		m = v
	case EntryP2PSent:
		var v P2PSentMetadata
		err = json.Unmarshal(data, &v)
		m = v
	case EntryP2PReceived:
		var v P2PReceivedMetadata
		err = json.Unmarshal(data, &v)
		m = v
	case EntryFee:
		var v FeeMetadata
		err = json.Unmarshal(data, &v)
		m = v
	case EntryRefund:
		var v RefundMetadata
		err = json.Unmarshal(data, &v)
		m = v
	default:
		return nil, fmt.Errorf("UnmarshalMetadata: unknown entry kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("UnmarshalMetadata: %s: %w", kind, err)
	}
	return m, nil
}
