// Package formatter renders decoded events as webhook notifications.
package formatter

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/vietddude/lottowatch/internal/core/domain"
)

// DefaultExplorerURL is the block explorer linked from notifications.
const DefaultExplorerURL = "https://etherscan.io"

// Embed colors.
const (
	ColorGreen  = 0x2ecc71
	ColorBlue   = 0x3498db
	ColorPurple = 0x9b59b6
	ColorGold   = 0xf1c40f
)

// weiDecimals is the exponent between wei and ether.
const weiDecimals = 18

// Formatter builds notification payloads. It holds no mutable state.
type Formatter struct {
	explorerURL string
}

// New creates a formatter linking to the given block explorer.
func New(explorerURL string) *Formatter {
	if explorerURL == "" {
		explorerURL = DefaultExplorerURL
	}
	return &Formatter{explorerURL: strings.TrimRight(explorerURL, "/")}
}

// Format renders ev. TicketPurchased goes to the tickets channel, every other
// kind to the events channel.
func (f *Formatter) Format(ev domain.Event) (domain.Payload, error) {
	switch e := ev.(type) {
	case domain.TicketPurchased:
		return domain.Payload{
			Channel: domain.ChannelTickets,
			Title:   "New Ticket Purchased",
			Color:   ColorGreen,
			Fields: []domain.Field{
				{Name: "Player", Value: f.addressLink(e.Player)},
				{Name: "Transaction", Value: f.txLink(e.TxHash)},
				{Name: "Game Number", Value: bigString(e.GameNumber), Inline: true},
				{Name: "Numbers", Value: ticketNumbers(e.Numbers, e.Etherball), Inline: true},
				{Name: "Block", Value: fmt.Sprintf("%d", e.BlockNumber), Inline: true},
			},
		}, nil

	case domain.DrawInitiated:
		return domain.Payload{
			Channel: domain.ChannelEvents,
			Title:   "Draw Initiated",
			Color:   ColorBlue,
			Fields: []domain.Field{
				{Name: "Transaction", Value: f.txLink(e.TxHash)},
				{Name: "Game Number", Value: bigString(e.GameNumber), Inline: true},
				{Name: "Target Block", Value: bigString(e.TargetSetBlock), Inline: true},
			},
		}, nil

	case domain.RandomSet:
		return domain.Payload{
			Channel: domain.ChannelEvents,
			Title:   "RANDAO Value Set",
			Color:   ColorPurple,
			Fields: []domain.Field{
				{Name: "Transaction", Value: f.txLink(e.TxHash)},
				{Name: "Game Number", Value: bigString(e.GameNumber), Inline: true},
				{Name: "Random Value", Value: bigHex(e.Random)},
			},
		}, nil

	case domain.VDFProofSubmitted:
		return domain.Payload{
			Channel: domain.ChannelEvents,
			Title:   "VDF Proof Submitted",
			Color:   ColorGold,
			Fields: []domain.Field{
				{Name: "Transaction", Value: f.txLink(e.TxHash)},
				{Name: "Submitter", Value: f.addressLink(e.Submitter)},
				{Name: "Game Number", Value: bigString(e.GameNumber), Inline: true},
			},
		}, nil

	case domain.GamePrizePayoutInfo:
		return domain.Payload{
			Channel: domain.ChannelEvents,
			Title:   "Prize Pool Announced",
			Color:   ColorGold,
			Fields: []domain.Field{
				{Name: "Transaction", Value: f.txLink(e.TxHash)},
				{Name: "Game Number", Value: bigString(e.GameNumber)},
				{Name: "🥇 Gold Prize", Value: formatEther(e.GoldPrize), Inline: true},
				{Name: "🥈 Silver Prize", Value: formatEther(e.SilverPrize), Inline: true},
				{Name: "🥉 Bronze Prize", Value: formatEther(e.BronzePrize), Inline: true},
			},
		}, nil
	}

	return domain.Payload{}, fmt.Errorf("no format rule for event %T", ev)
}

func (f *Formatter) addressLink(a common.Address) string {
	hex := a.Hex()
	return fmt.Sprintf("[%s...%s](%s/address/%s)", hex[:6], hex[len(hex)-4:], f.explorerURL, hex)
}

func (f *Formatter) txLink(h common.Hash) string {
	return fmt.Sprintf("[View Transaction](%s/tx/%s)", f.explorerURL, h.Hex())
}

func ticketNumbers(numbers [3]*big.Int, etherball *big.Int) string {
	parts := make([]string, 0, len(numbers)+1)
	for _, n := range numbers {
		parts = append(parts, bigString(n))
	}
	parts = append(parts, bigString(etherball))
	return strings.Join(parts, "-")
}

func bigString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

func bigHex(n *big.Int) string {
	if n == nil {
		return "0x0"
	}
	return hexutil.EncodeBig(n)
}

// formatEther renders a wei amount as ether with four decimals.
func formatEther(wei *big.Int) string {
	if wei == nil {
		wei = new(big.Int)
	}
	return decimal.NewFromBigInt(wei, -weiDecimals).StringFixed(4) + " ETH"
}
