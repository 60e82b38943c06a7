package model

import (
	"fmt"
	"strings"
)

// Contract identifies a deployed contract by deployer address and name.
type Contract struct {
	Address string
	Name    string
}

// ID returns the address.name form used by the upstream API.
func (c Contract) ID() string {
	return c.Address + "." + c.Name
}

func (c Contract) String() string {
	return c.ID()
}

// ParseContractID splits id on its first '.' into address and name.
func ParseContractID(id string) (Contract, error) {
	id = strings.TrimSpace(id)
	address, name, ok := strings.Cut(id, ".")
	if !ok {
		return Contract{}, fmt.Errorf("invalid contract id %q: expected address.name", id)
	}
	if address == "" || name == "" {
		return Contract{}, fmt.Errorf("invalid contract id %q: empty address or name", id)
	}
	return Contract{Address: address, Name: name}, nil
}
