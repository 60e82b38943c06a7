package indexer

import (
	"time"

	"stacksIndexer/internal/model"
)

// DecodeEvent builds the stored Event from an upstream event and its transaction
// detail. It never fails: missing fields fall back to zero height, null
// optional fields, the ingestion time, and an empty payload.
func DecodeEvent(raw model.RawEvent, address, name string, detail model.TransactionDetail, ingestedAt time.Time) model.Event {
	contractID := raw.ContractID
	if contractID == "" {
		contractID = model.Contract{Address: address, Name: name}.ID()
	}

	event := model.Event{
		ContractID: contractID,
		TxID:       model.NormalizeTxID(raw.TxID),
		EventName:  raw.EventType,
		EventData:  model.EmptyMap(),
		Timestamp:  ingestedAt.UTC(),
	}

	if detail.BlockHeight != nil {
		event.BlockHeight = *detail.BlockHeight
	}
	if detail.BlockHash != nil && *detail.BlockHash != "" {
		hash := *detail.BlockHash
		event.BlockHash = &hash
	}
	if detail.Nonce != nil {
		nonce := *detail.Nonce
		event.Nonce = &nonce
	}
	if detail.FeeRate != nil {
		fees := *detail.FeeRate
		event.Fees = &fees
	}

	if raw.BlockTime != nil && *raw.BlockTime > 0 {
		event.Timestamp = time.Unix(*raw.BlockTime, 0).UTC()
	}
	if raw.ContractLog != nil && raw.ContractLog.Value != nil {
		event.EventData = *raw.ContractLog.Value
	}

	return event
}
