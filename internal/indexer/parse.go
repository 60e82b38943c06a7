package indexer

import (
	"fmt"
	"strings"

	"stacksIndexer/internal/model"
)

// ParseContracts converts address.name strings into contracts, dropping blanks
// and duplicates while keeping the input order.
func ParseContracts(inputs []string) ([]model.Contract, error) {
	contracts := make([]model.Contract, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		contract, err := model.ParseContractID(input)
		if err != nil {
			return nil, err
		}
		if strings.ContainsAny(contract.ID(), " \t\n/?#") {
			return nil, fmt.Errorf("invalid contract id: %s", input)
		}
		if _, ok := seen[contract.ID()]; ok {
			continue
		}
		seen[contract.ID()] = struct{}{}
		contracts = append(contracts, contract)
	}
	return contracts, nil
}
