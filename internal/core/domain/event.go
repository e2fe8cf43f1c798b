package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventMeta locates a decoded event on chain.
type EventMeta struct {
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
}

// Event is a decoded contract event. The implementations below are the
// complete set; consumers switch on the concrete type.
type Event interface {
	Kind() Kind
	Meta() EventMeta
	isEvent()
}

// TicketPurchased is emitted when a player buys a ticket.
type TicketPurchased struct {
	EventMeta
	Player     common.Address
	GameNumber *big.Int
	Numbers    [3]*big.Int
	Etherball  *big.Int
}

// DrawInitiated is emitted when a game's draw starts.
type DrawInitiated struct {
	EventMeta
	GameNumber     *big.Int
	TargetSetBlock *big.Int
}

// RandomSet is emitted when the RANDAO value for a game is recorded.
type RandomSet struct {
	EventMeta
	GameNumber *big.Int
	Random     *big.Int
}

// VDFProofSubmitted is emitted when a VDF proof is accepted.
type VDFProofSubmitted struct {
	EventMeta
	Submitter  common.Address
	GameNumber *big.Int
}

// GamePrizePayoutInfo announces the prize pool of a finished game. Prizes are in wei.
type GamePrizePayoutInfo struct {
	EventMeta
	GameNumber  *big.Int
	GoldPrize   *big.Int
	SilverPrize *big.Int
	BronzePrize *big.Int
}

func (TicketPurchased) Kind() Kind     { return KindTicketPurchased }
func (DrawInitiated) Kind() Kind       { return KindDrawInitiated }
func (RandomSet) Kind() Kind           { return KindRandomSet }
func (VDFProofSubmitted) Kind() Kind   { return KindVDFProofSubmitted }
func (GamePrizePayoutInfo) Kind() Kind { return KindGamePrizePayoutInfo }

func (e TicketPurchased) Meta() EventMeta     { return e.EventMeta }
func (e DrawInitiated) Meta() EventMeta       { return e.EventMeta }
func (e RandomSet) Meta() EventMeta           { return e.EventMeta }
func (e VDFProofSubmitted) Meta() EventMeta   { return e.EventMeta }
func (e GamePrizePayoutInfo) Meta() EventMeta { return e.EventMeta }

func (TicketPurchased) isEvent()     {}
func (DrawInitiated) isEvent()       {}
func (RandomSet) isEvent()           {}
func (VDFProofSubmitted) isEvent()   {}
func (GamePrizePayoutInfo) isEvent() {}

// DedupeKey identifies the same event across re-scans of a block range.
func DedupeKey(e Event) string {
	m := e.Meta()
	return fmt.Sprintf("%s:%s:%d", e.Kind(), m.TxHash.Hex(), m.LogIndex)
}

// Before orders events chronologically by (block, log index).
func Before(a, b Event) bool {
	ma, mb := a.Meta(), b.Meta()
	if ma.BlockNumber != mb.BlockNumber {
		return ma.BlockNumber < mb.BlockNumber
	}
	return ma.LogIndex < mb.LogIndex
}
