// Package decoder turns raw contract logs into typed events.
//
// Logs are matched on their first topic (the event signature hash). Non-indexed
// fields are unpacked from the log data, indexed fields from the remaining topics.
// Decoding is a pure function of the log: the same log always yields an equal event.
package decoder

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vietddude/lottowatch/internal/core/domain"
)

// Decoder decodes logs of the lottery contract.
type Decoder struct {
	abi     abi.ABI
	events  map[domain.Kind]abi.Event
	byTopic map[common.Hash]domain.Kind
}

// New parses the contract interface and indexes its events by signature hash.
func New() (*Decoder, error) {
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi: %w", err)
	}

	d := &Decoder{
		abi:     parsed,
		events:  make(map[domain.Kind]abi.Event, len(domain.Kinds)),
		byTopic: make(map[common.Hash]domain.Kind, len(domain.Kinds)),
	}
	for _, kind := range domain.Kinds {
		ev, ok := parsed.Events[kind.String()]
		if !ok {
			return nil, fmt.Errorf("event %s missing from contract abi", kind)
		}
		d.events[kind] = ev
		d.byTopic[ev.ID] = kind
	}
	return d, nil
}

// Topic returns the signature hash used to filter logs of kind.
func (d *Decoder) Topic(kind domain.Kind) common.Hash {
	return d.events[kind].ID
}

// Topics returns the signature hash of every kind.
func (d *Decoder) Topics() map[domain.Kind]common.Hash {
	out := make(map[domain.Kind]common.Hash, len(d.events))
	for kind, ev := range d.events {
		out[kind] = ev.ID
	}
	return out
}

// Event returns the ABI definition of kind.
func (d *Decoder) Event(kind domain.Kind) abi.Event {
	return d.events[kind]
}

// Decode converts a raw log into its typed event.
func (d *Decoder) Decode(l types.Log) (domain.Event, error) {
	if len(l.Topics) == 0 {
		return nil, &domain.DecodeError{Reason: "log has no topics"}
	}

	topic := l.Topics[0]
	kind, ok := d.byTopic[topic]
	if !ok {
		return nil, &domain.DecodeError{Topic: topic, Reason: "unknown event signature"}
	}

	meta := domain.EventMeta{
		BlockNumber: l.BlockNumber,
		TxHash:      l.TxHash,
		LogIndex:    l.Index,
	}

	switch kind {
	case domain.KindTicketPurchased:
		var out struct {
			Player     common.Address
			GameNumber *big.Int
			Numbers    [3]*big.Int
			Etherball  *big.Int
		}
		if err := d.unpack(kind, l, &out); err != nil {
			return nil, err
		}
		return domain.TicketPurchased{
			EventMeta:  meta,
			Player:     out.Player,
			GameNumber: out.GameNumber,
			Numbers:    out.Numbers,
			Etherball:  out.Etherball,
		}, nil

	case domain.KindDrawInitiated:
		var out struct {
			GameNumber     *big.Int
			TargetSetBlock *big.Int
		}
		if err := d.unpack(kind, l, &out); err != nil {
			return nil, err
		}
		return domain.DrawInitiated{
			EventMeta:      meta,
			GameNumber:     out.GameNumber,
			TargetSetBlock: out.TargetSetBlock,
		}, nil

	case domain.KindRandomSet:
		var out struct {
			GameNumber *big.Int
			Random     *big.Int
		}
		if err := d.unpack(kind, l, &out); err != nil {
			return nil, err
		}
		return domain.RandomSet{
			EventMeta:  meta,
			GameNumber: out.GameNumber,
			Random:     out.Random,
		}, nil

	case domain.KindVDFProofSubmitted:
		var out struct {
			Submitter  common.Address
			GameNumber *big.Int
		}
		if err := d.unpack(kind, l, &out); err != nil {
			return nil, err
		}
		return domain.VDFProofSubmitted{
			EventMeta:  meta,
			Submitter:  out.Submitter,
			GameNumber: out.GameNumber,
		}, nil

	case domain.KindGamePrizePayoutInfo:
		var out struct {
			GameNumber  *big.Int
			GoldPrize   *big.Int
			SilverPrize *big.Int
			BronzePrize *big.Int
		}
		if err := d.unpack(kind, l, &out); err != nil {
			return nil, err
		}
		return domain.GamePrizePayoutInfo{
			EventMeta:   meta,
			GameNumber:  out.GameNumber,
			GoldPrize:   out.GoldPrize,
			SilverPrize: out.SilverPrize,
			BronzePrize: out.BronzePrize,
		}, nil
	}

	return nil, &domain.DecodeError{Topic: topic, Reason: fmt.Sprintf("no decoder for %s", kind)}
}

// unpack fills out from the log data (non-indexed inputs) and topics (indexed inputs).
func (d *Decoder) unpack(kind domain.Kind, l types.Log, out any) error {
	ev := d.events[kind]

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(l.Topics)-1 != len(indexed) {
		return &domain.DecodeError{
			Topic:  ev.ID,
			Reason: fmt.Sprintf("%s expects %d indexed topics, got %d", kind, len(indexed), len(l.Topics)-1),
		}
	}

	if err := d.abi.UnpackIntoInterface(out, ev.Name, l.Data); err != nil {
		return &domain.DecodeError{Topic: ev.ID, Reason: "unpack data", Err: err}
	}
	if err := abi.ParseTopics(out, indexed, l.Topics[1:]); err != nil {
		return &domain.DecodeError{Topic: ev.ID, Reason: "parse topics", Err: err}
	}
	return nil
}
