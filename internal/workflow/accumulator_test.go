package workflow

import (
	"testing"

	"studio/internal/providers/image"
)

func payload(name string) image.Payload {
	return image.Payload{Data: []byte(name), MIME: "image/png", Filename: name + ".png"}
}

func TestAccumulatorPreservesArrivalOrder(t *testing.T) {
	var acc Accumulator
	acc.Add(payload("a"), payload("b"))
	acc.Add(payload("c"))

	items := acc.Items()
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	for i, want := range []string{"a.png", "b.png", "c.png"} {
		if items[i].Payload.Filename != want || items[i].Ordinal != i {
			t.Fatalf("items[%d] = %s/%d, want %s/%d", i, items[i].Payload.Filename, items[i].Ordinal, want, i)
		}
	}
}

func TestAccumulatorRemove(t *testing.T) {
	var acc Accumulator
	acc.Add(payload("a"), payload("b"), payload("c"))

	if _, ok := acc.Remove(5); ok {
		t.Fatal("out of range remove should be a no-op")
	}
	if _, ok := acc.Remove(-1); ok {
		t.Fatal("negative remove should be a no-op")
	}
	removed, ok := acc.Remove(1)
	if !ok || removed.Payload.Filename != "b.png" {
		t.Fatalf("Remove(1) = %+v, %v", removed, ok)
	}
	items := acc.Items()
	if len(items) != 2 || items[1].Payload.Filename != "c.png" || items[1].Ordinal != 1 {
		t.Fatalf("unexpected items after remove: %+v", items)
	}
}

func TestAccumulatorReplaceAndRestore(t *testing.T) {
	var acc Accumulator
	acc.Add(payload("a"))
	before := acc.Items()

	old := acc.Replace(payload("b"))
	if len(old) != 1 || old[0].ID != before[0].ID {
		t.Fatalf("Replace returned %+v", old)
	}
	if acc.Len() != 1 || acc.Items()[0].Payload.Filename != "b.png" {
		t.Fatalf("unexpected set after replace: %+v", acc.Items())
	}

	acc.Restore(before)
	if acc.Len() != 1 || acc.Items()[0].ID != before[0].ID {
		t.Fatalf("Restore did not bring back the original input: %+v", acc.Items())
	}

	acc.Clear()
	if acc.Len() != 0 {
		t.Fatalf("Clear left %d items", acc.Len())
	}
}
