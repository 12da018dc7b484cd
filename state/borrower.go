package state

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/michaelpento.lv/liquidator/aave"
)

// AddressSet is a set of addresses that remembers insertion order.
type AddressSet struct {
	order []common.Address
	index map[common.Address]struct{}
}

func NewAddressSet(addrs ...common.Address) *AddressSet {
	s := &AddressSet{index: make(map[common.Address]struct{}, len(addrs))}
	for _, a := range addrs {
		s.Add(a)
	}
	return s
}

// Add inserts a and reports whether it was new.
func (s *AddressSet) Add(a common.Address) bool {
	if s.index == nil {
		s.index = make(map[common.Address]struct{})
	}
	if _, ok := s.index[a]; ok {
		return false
	}
	s.index[a] = struct{}{}
	s.order = append(s.order, a)
	return true
}

func (s *AddressSet) Contains(a common.Address) bool {
	_, ok := s.index[a]
	return ok
}

func (s *AddressSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Items returns the members in insertion order.
func (s *AddressSet) Items() []common.Address {
	if s == nil {
		return nil
	}
	return append([]common.Address(nil), s.order...)
}

// First returns the earliest inserted member.
func (s *AddressSet) First() (common.Address, bool) {
	if s.Len() == 0 {
		return common.Address{}, false
	}
	return s.order[0], true
}

func (s *AddressSet) MarshalJSON() ([]byte, error) {
	if s == nil || s.order == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.order)
}

func (s *AddressSet) UnmarshalJSON(data []byte) error {
	var addrs []common.Address
	if err := json.Unmarshal(data, &addrs); err != nil {
		return err
	}
	*s = *NewAddressSet(addrs...)
	return nil
}

// Borrower is every reserve a user has ever supplied to or borrowed from.
// Sets only grow; live exposure is read from the protocol at evaluation.
type Borrower struct {
	Address    common.Address `json:"address"`
	Collateral *AddressSet    `json:"collateral"`
	Debt       *AddressSet    `json:"debt"`
}

func NewBorrower(addr common.Address) *Borrower {
	return &Borrower{
		Address:    addr,
		Collateral: NewAddressSet(),
		Debt:       NewAddressSet(),
	}
}

// Borrowers indexes borrowers by address.
type Borrowers map[common.Address]*Borrower

// Fold applies one pool event and reports whether a new borrower was created.
// Folding the same event twice has no further effect.
func (b Borrowers) Fold(ev *aave.PositionEvent) bool {
	borrower, ok := b[ev.OnBehalfOf]
	if !ok {
		borrower = NewBorrower(ev.OnBehalfOf)
		b[ev.OnBehalfOf] = borrower
	}
	switch ev.Kind {
	case aave.EventBorrow:
		borrower.Debt.Add(ev.Reserve)
	case aave.EventSupply:
		borrower.Collateral.Add(ev.Reserve)
	}
	return !ok
}

// WithDebt returns the addresses of borrowers with at least one debt asset,
// ordered by address.
func (b Borrowers) WithDebt() []common.Address {
	out := make([]common.Address, 0, len(b))
	for addr, borrower := range b {
		if borrower.Debt.Len() > 0 {
			out = append(out, addr)
		}
	}
	sortAddresses(out)
	return out
}

// Fingerprint hashes the content of the map independent of insertion order.
func (b Borrowers) Fingerprint() uint64 {
	addrs := make([]common.Address, 0, len(b))
	for addr := range b {
		addrs = append(addrs, addr)
	}
	sortAddresses(addrs)

	h := xxhash.New()
	for _, addr := range addrs {
		borrower := b[addr]
		_, _ = h.Write(addr.Bytes())
		for _, set := range []*AddressSet{borrower.Collateral, borrower.Debt} {
			items := set.Items()
			sortAddresses(items)
			_, _ = h.Write([]byte{byte(len(items) >> 8), byte(len(items))})
			for _, item := range items {
				_, _ = h.Write(item.Bytes())
			}
		}
	}
	return h.Sum64()
}

func sortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i].Bytes(), addrs[j].Bytes()) < 0
	})
}
