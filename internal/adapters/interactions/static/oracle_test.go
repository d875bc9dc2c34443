package static

import (
	"context"
	"testing"
)

func TestStaticOracleIsSymmetricAndCaseInsensitive(t *testing.T) {
	o := New([]Pair{{A: "Warfarin", B: "aspirin", Severity: "major"}})

	res, err := o.Check(context.Background(), "ASPIRIN", "warfarin")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.HasInteraction || res.Severity != "major" {
		t.Fatalf("expected major interaction, got %+v", res)
	}

	res, _ = o.Check(context.Background(), "aspirin", "ibuprofen")
	if res.HasInteraction {
		t.Fatalf("expected no interaction")
	}
}
