package babystep

import (
	"testing"

	"btc_bsgs/internal/curve"
	"btc_bsgs/internal/field"
)

// P8: for every i<m, table.lookup(P_i) = Some(i).
func TestP8LookupEveryBabyStep(t *testing.T) {
	const m = 500
	table, err := Build(m)
	if err != nil {
		t.Fatal(err)
	}
	if table.Size() != m {
		t.Fatalf("expected size %d, got %d", m, table.Size())
	}

	for i := 0; i < m; i++ {
		p := curve.ToAffine(curve.ScalarBaseMul(field.NewFromUint64(uint64(i))))
		got, ok := table.Lookup(p)
		if !ok {
			t.Fatalf("lookup miss for i=%d", i)
		}
		if got != i {
			t.Fatalf("lookup for i=%d returned %d", i, got)
		}
	}
}

func TestLookupMissForOutOfRangePoint(t *testing.T) {
	const m = 100
	table, err := Build(m)
	if err != nil {
		t.Fatal(err)
	}

	outside := curve.ToAffine(curve.ScalarBaseMul(field.NewFromUint64(m + 50)))
	if _, ok := table.Lookup(outside); ok {
		t.Fatalf("expected miss for point outside table range")
	}
}

func TestBuildRejectsNonPositiveM(t *testing.T) {
	if _, err := Build(0); err == nil {
		t.Fatal("expected error for m=0")
	}
	if _, err := Build(-5); err == nil {
		t.Fatal("expected error for negative m")
	}
}
