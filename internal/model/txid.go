package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NormalizeTxID returns the canonical 0x-prefixed lowercase form of a 32-byte
// transaction id. Anything that is not a 32-byte hex string is returned trimmed
// but otherwise untouched.
func NormalizeTxID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return id
	}

	candidate := id
	if !strings.HasPrefix(candidate, "0x") && !strings.HasPrefix(candidate, "0X") {
		candidate = "0x" + candidate
	}
	raw, err := hexutil.Decode(candidate)
	if err != nil || len(raw) != common.HashLength {
		return id
	}
	return common.BytesToHash(raw).Hex()
}
