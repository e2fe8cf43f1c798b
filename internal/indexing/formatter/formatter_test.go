package formatter

import (
	"bytes"
	"encoding/json"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vietddude/lottowatch/internal/core/domain"
	"github.com/vietddude/lottowatch/internal/indexing/decoder"
)

var (
	testPlayer = common.HexToAddress("0xAbCdEf0123456789aBcDeF0123456789AbCdEf12")
	testTx     = common.HexToHash("0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060")
	testMeta   = domain.EventMeta{BlockNumber: 150, TxHash: testTx, LogIndex: 2}
)

func playerLink() string {
	hex := testPlayer.Hex()
	return "[" + hex[:6] + "..." + hex[len(hex)-4:] + "](https://etherscan.io/address/" + hex + ")"
}

func ticketLog(t *testing.T, d *decoder.Decoder) types.Log {
	t.Helper()
	data, err := d.Event(domain.KindTicketPurchased).Inputs.NonIndexed().Pack(
		big.NewInt(12),
		[3]*big.Int{big.NewInt(4), big.NewInt(17), big.NewInt(29)},
		big.NewInt(7),
	)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return types.Log{
		Topics:      []common.Hash{d.Topic(domain.KindTicketPurchased), common.BytesToHash(testPlayer.Bytes())},
		Data:        data,
		BlockNumber: 150,
		TxHash:      testTx,
		Index:       2,
	}
}

func TestFormat_TicketScenario(t *testing.T) {
	d, err := decoder.New()
	if err != nil {
		t.Fatalf("decoder.New: %v", err)
	}
	ev, err := d.Decode(ticketLog(t, d))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	payload, err := New("").Format(ev)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	if payload.Channel != domain.ChannelTickets {
		t.Errorf("expected tickets channel, got %s", payload.Channel)
	}
	if payload.Title != "New Ticket Purchased" || payload.Color != 0x2ecc71 {
		t.Errorf("unexpected title/color %q %#x", payload.Title, payload.Color)
	}

	want := map[string]string{
		"Numbers":     "4-17-29-7",
		"Game Number": "12",
		"Block":       "150",
		"Player":      playerLink(),
		"Transaction": "[View Transaction](https://etherscan.io/tx/" + testTx.Hex() + ")",
	}
	for name, value := range want {
		f, ok := payload.Field(name)
		if !ok {
			t.Errorf("missing field %q", name)
			continue
		}
		if f.Value != value {
			t.Errorf("field %q = %q, want %q", name, f.Value, value)
		}
	}
}

func TestFormat_Table(t *testing.T) {
	f := New("https://etherscan.io/")

	tests := []struct {
		name    string
		event   domain.Event
		title   string
		color   int
		channel domain.Channel
		fields  map[string]string
	}{
		{
			name:    "draw",
			event:   domain.DrawInitiated{EventMeta: testMeta, GameNumber: big.NewInt(3), TargetSetBlock: big.NewInt(19_000_000)},
			title:   "Draw Initiated",
			color:   0x3498db,
			channel: domain.ChannelEvents,
			fields:  map[string]string{"Game Number": "3", "Target Block": "19000000"},
		},
		{
			name:    "random",
			event:   domain.RandomSet{EventMeta: testMeta, GameNumber: big.NewInt(3), Random: big.NewInt(255)},
			title:   "RANDAO Value Set",
			color:   0x9b59b6,
			channel: domain.ChannelEvents,
			fields:  map[string]string{"Random Value": "0xff"},
		},
		{
			name:    "vdf",
			event:   domain.VDFProofSubmitted{EventMeta: testMeta, Submitter: testPlayer, GameNumber: big.NewInt(3)},
			title:   "VDF Proof Submitted",
			color:   0xf1c40f,
			channel: domain.ChannelEvents,
			fields: map[string]string{
				"Submitter":   playerLink(),
				"Game Number": "3",
			},
		},
		{
			name: "prize",
			event: domain.GamePrizePayoutInfo{
				EventMeta:   testMeta,
				GameNumber:  big.NewInt(3),
				GoldPrize:   big.NewInt(1_234_567_000_000_000_000),
				SilverPrize: big.NewInt(500_000_000_000_000_000),
				BronzePrize: big.NewInt(0),
			},
			title:   "Prize Pool Announced",
			color:   0xf1c40f,
			channel: domain.ChannelEvents,
			fields: map[string]string{
				"Game Number":     "3",
				"🥇 Gold Prize":   "1.2346 ETH",
				"🥈 Silver Prize": "0.5000 ETH",
				"🥉 Bronze Prize": "0.0000 ETH",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := f.Format(tt.event)
			if err != nil {
				t.Fatalf("Format: %v", err)
			}
			if p.Title != tt.title || p.Color != tt.color || p.Channel != tt.channel {
				t.Errorf("got %q %#x %s, want %q %#x %s", p.Title, p.Color, p.Channel, tt.title, tt.color, tt.channel)
			}
			for name, value := range tt.fields {
				field, ok := p.Field(name)
				if !ok {
					t.Errorf("missing field %q", name)
					continue
				}
				if field.Value != value {
					t.Errorf("field %q = %q, want %q", name, field.Value, value)
				}
			}
		})
	}
}

func TestFormat_PrizeGameNumberNotInline(t *testing.T) {
	p, err := New("").Format(domain.GamePrizePayoutInfo{
		EventMeta: testMeta, GameNumber: big.NewInt(1),
		GoldPrize: big.NewInt(1), SilverPrize: big.NewInt(1), BronzePrize: big.NewInt(1),
	})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if f, _ := p.Field("Game Number"); f.Inline {
		t.Error("prize Game Number should not be inline")
	}
	if f, _ := p.Field("🥇 Gold Prize"); !f.Inline {
		t.Error("prize amounts should be inline")
	}
}

func TestFormat_Deterministic(t *testing.T) {
	f := New("")
	ev := domain.TicketPurchased{
		EventMeta:  testMeta,
		Player:     testPlayer,
		GameNumber: big.NewInt(12),
		Numbers:    [3]*big.Int{big.NewInt(4), big.NewInt(17), big.NewInt(29)},
		Etherball:  big.NewInt(7),
	}

	first, _ := f.Format(ev)
	second, _ := f.Format(ev)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("payloads differ")
	}

	a, err := first.Body()
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	b, _ := second.Body()
	if !bytes.Equal(a, b) {
		t.Errorf("bodies differ:\n%s\n%s", a, b)
	}

	var body struct {
		Embeds []struct {
			Title  string `json:"title"`
			Color  int    `json:"color"`
			Fields []struct {
				Name   string `json:"name"`
				Value  string `json:"value"`
				Inline bool   `json:"inline"`
			} `json:"fields"`
		} `json:"embeds"`
	}
	if err := json.Unmarshal(a, &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if len(body.Embeds) != 1 || body.Embeds[0].Title != "New Ticket Purchased" || len(body.Embeds[0].Fields) != 5 {
		t.Errorf("unexpected body %s", a)
	}
}
