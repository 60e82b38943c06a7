package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is one ingested contract event. TxID is unique across the store.
type Event struct {
	ContractID  string           `json:"contractId"`
	TxID        string           `json:"txId"`
	EventName   string           `json:"eventName"`
	EventData   Value            `json:"eventData"`
	BlockHeight uint64           `json:"blockHeight"`
	BlockHash   *string          `json:"blockHash"`
	Nonce       *uint64          `json:"nonce"`
	Fees        *decimal.Decimal `json:"fees"`
	Timestamp   time.Time        `json:"timestamp"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ContractCheckpoint is the ingestion watermark of one contract.
type ContractCheckpoint struct {
	Address            string    `json:"address"`
	ContractName       string    `json:"contractName"`
	LastProcessedBlock uint64    `json:"lastProcessedBlock"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// ContractID returns the checkpoint's contract id in address.name form.
func (c ContractCheckpoint) ContractID() string {
	return Contract{Address: c.Address, Name: c.ContractName}.ID()
}
