package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Contract binds an address to the ABI used to talk to it.
type Contract struct {
	Name    string
	Address common.Address
	ABI     abi.ABI

	canonical abi.ABI
}

// Contracts holds the three protocol bindings.
type Contracts struct {
	Honey    *Contract
	Locks    *Contract
	Porridge *Contract
}

type Addresses struct {
	Honey    string
	Locks    string
	Porridge string
}

// EventShape identifies one event by emitter and topic, and names the field
// holding the effected amount.
type EventShape struct {
	Contract string
	Address  common.Address
	Event    abi.Event
	Topic    common.Hash
	Field    string
}

// NewContract binds address to the ABI parsed from raw. The same ABI is used
// as canonical fallback.
func NewContract(name string, address common.Address, raw string) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s abi: %w", name, err)
	}
	return &Contract{Name: name, Address: address, ABI: parsed, canonical: parsed}, nil
}

// Bind builds the protocol bindings. When abiDir is empty the built-in ABIs
// are used; otherwise abi_honey.json, abi_locks.json and abi_porridge.json are
// loaded from it.
func Bind(addrs Addresses, abiDir string) (Contracts, error) {
	specs := []struct {
		name    string
		address string
		raw     string
		file    string
	}{
		{"HONEY", addrs.Honey, HoneyABI, HoneyABIFile},
		{"LOCKS", addrs.Locks, LocksABI, LocksABIFile},
		{"PORRIDGE", addrs.Porridge, PorridgeABI, PorridgeABIFile},
	}
	bound := make([]*Contract, 0, len(specs))
	for _, spec := range specs {
		if !common.IsHexAddress(strings.TrimSpace(spec.address)) {
			return Contracts{}, fmt.Errorf("invalid %s contract address %q", spec.name, spec.address)
		}
		c, err := NewContract(spec.name, common.HexToAddress(strings.TrimSpace(spec.address)), spec.raw)
		if err != nil {
			return Contracts{}, err
		}
		if strings.TrimSpace(abiDir) != "" {
			loaded, err := LoadABIFile(filepath.Join(abiDir, spec.file))
			if err != nil {
				return Contracts{}, err
			}
			c.ABI = loaded
		}
		bound = append(bound, c)
	}
	return Contracts{Honey: bound[0], Locks: bound[1], Porridge: bound[2]}, nil
}

// LoadABIFile reads either a bare ABI array or an artifact object carrying an
// "abi" key.
func LoadABIFile(path string) (abi.ABI, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return abi.ABI{}, fmt.Errorf("abi file not found: %s", path)
		}
		return abi.ABI{}, fmt.Errorf("read abi file: %w", err)
	}
	trimmed := bytes.TrimSpace(buf)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var artifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(trimmed, &artifact); err != nil {
			return abi.ABI{}, fmt.Errorf("invalid json in abi file %s: %w", path, err)
		}
		if len(artifact.ABI) == 0 {
			return abi.ABI{}, fmt.Errorf("abi file %s has no \"abi\" field", path)
		}
		trimmed = artifact.ABI
	}
	parsed, err := abi.JSON(bytes.NewReader(trimmed))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("invalid json in abi file %s: %w", path, err)
	}
	return parsed, nil
}

// Method looks name up in the bound ABI, then in the built-in one.
func (c *Contract) Method(name string) (abi.Method, bool) {
	if m, ok := c.ABI.Methods[name]; ok {
		return m, true
	}
	return c.CanonicalMethod(name)
}

// CanonicalMethod returns the built-in definition of a method.
func (c *Contract) CanonicalMethod(name string) (abi.Method, bool) {
	m, ok := c.canonical.Methods[name]
	return m, ok
}

// EventShape resolves event from the bound ABI, falling back to the built-in
// ABI, and checks that field is one of its inputs.
func (c *Contract) EventShape(event, field string) (EventShape, error) {
	ev, ok := c.ABI.Events[event]
	if !ok {
		ev, ok = c.canonical.Events[event]
	}
	if !ok {
		return EventShape{}, fmt.Errorf("%s abi has no %s event", c.Name, event)
	}
	found := false
	for _, input := range ev.Inputs {
		if input.Name == field {
			found = true
			break
		}
	}
	if !found {
		return EventShape{}, fmt.Errorf("%s event %s has no %q field", c.Name, event, field)
	}
	return EventShape{
		Contract: c.Name,
		Address:  c.Address,
		Event:    ev,
		Topic:    ev.ID,
		Field:    field,
	}, nil
}

// MustEventShape is EventShape for the built-in events, which always exist.
func (c *Contract) MustEventShape(event string) EventShape {
	shape, err := c.EventShape(event, "amount")
	if err != nil {
		panic(err)
	}
	return shape
}
