package rlog

import "testing"

func TestNodeIDContext(t *testing.T) {
	ctx := Background()

	if GetNodeID(ctx) != "" {
		t.Fatal("context should not yet have a node id")
	}

	expected := "node-7f3a"
	ctx = WithNodeID(ctx, expected)
	if got := GetNodeID(ctx); got != expected {
		t.Fatalf("node id was not set: %q != %q", got, expected)
	}
}
