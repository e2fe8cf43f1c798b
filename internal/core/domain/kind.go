package domain

// Kind identifies one of the contract events the watcher republishes.
type Kind int

const (
	KindTicketPurchased Kind = iota
	KindDrawInitiated
	KindRandomSet
	KindVDFProofSubmitted
	KindGamePrizePayoutInfo
)

// Kinds lists every kind in processing order: tickets, draws, randomness, proofs, payouts.
var Kinds = []Kind{
	KindTicketPurchased,
	KindDrawInitiated,
	KindRandomSet,
	KindVDFProofSubmitted,
	KindGamePrizePayoutInfo,
}

// String returns the Solidity event name.
func (k Kind) String() string {
	switch k {
	case KindTicketPurchased:
		return "TicketPurchased"
	case KindDrawInitiated:
		return "DrawInitiated"
	case KindRandomSet:
		return "RandomSet"
	case KindVDFProofSubmitted:
		return "VDFProofSubmitted"
	case KindGamePrizePayoutInfo:
		return "GamePrizePayoutInfo"
	default:
		return "Unknown"
	}
}
