package model

import "github.com/shopspring/decimal"

// RawEvent is a contract event as returned by the upstream events endpoint.
type RawEvent struct {
	EventIndex  int          `json:"event_index"`
	EventType   string       `json:"event_type"`
	TxID        string       `json:"tx_id"`
	ContractID  string       `json:"contract_id,omitempty"`
	BlockTime   *int64       `json:"block_time,omitempty"`
	ContractLog *ContractLog `json:"contract_log,omitempty"`
}

// ContractLog carries the print payload of a smart_contract_log event.
type ContractLog struct {
	ContractID string `json:"contract_id"`
	Topic      string `json:"topic"`
	Value      *Value `json:"value,omitempty"`
}

// EventsPage is one page of the contract events endpoint.
type EventsPage struct {
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
	Results []RawEvent `json:"results"`
}

// TransactionDetail holds the fields of a transaction lookup the decoder uses.
// Every field is optional; a failed lookup yields the zero value.
type TransactionDetail struct {
	TxID        string           `json:"tx_id,omitempty"`
	TxStatus    string           `json:"tx_status,omitempty"`
	BlockHeight *uint64          `json:"block_height,omitempty"`
	BlockHash   *string          `json:"block_hash,omitempty"`
	Nonce       *uint64          `json:"nonce,omitempty"`
	FeeRate     *decimal.Decimal `json:"fee_rate,omitempty"`
}

// Confirmed reports whether the transaction has been included in a block.
func (d TransactionDetail) Confirmed() bool {
	return d.BlockHeight != nil && d.BlockHash != nil
}
