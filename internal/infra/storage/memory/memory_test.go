package memory

import (
	"context"
	"testing"
)

func TestStore_Watermark(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, ok, _ := s.Load(ctx); ok {
		t.Fatal("new store should have no watermark")
	}

	if err := s.Save(ctx, 1234); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := s.Load(ctx)
	if err != nil || !ok || got != 1234 {
		t.Errorf("Load = (%d, %v, %v), want (1234, true, nil)", got, ok, err)
	}

	_ = s.Clear(ctx)
	if _, ok, _ := s.Load(ctx); ok {
		t.Error("watermark should be cleared")
	}
}

func TestStore_Ledger(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first, _ := s.MarkDelivered(ctx, "delivered:TicketPurchased:0xab:0")
	second, _ := s.MarkDelivered(ctx, "delivered:TicketPurchased:0xab:0")
	if !first || second {
		t.Errorf("MarkDelivered = %v, %v; want true, false", first, second)
	}

	if ok, _ := s.Delivered(ctx, "delivered:TicketPurchased:0xab:0"); !ok {
		t.Error("key should be delivered")
	}
	if ok, _ := s.Delivered(ctx, "delivered:RandomSet:0xab:1"); ok {
		t.Error("unknown key should not be delivered")
	}
}
