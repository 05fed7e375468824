package list

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/pkg/errors"
)

func newLists(option Option) map[Policy]*List {
	lists := map[Policy]*List{}
	for _, p := range Policies() {
		option.Policy = p
		lists[p] = New(option)
	}
	return lists
}

func mustValues(t *testing.T, l *List) []int {
	t.Helper()
	vs, err := l.Values()
	if err != nil {
		t.Fatal("values:", err)
	}
	return vs
}

func checkChain(t *testing.T, l *List) []int {
	t.Helper()
	vs := mustValues(t, l)
	for i := 1; i < len(vs); i++ {
		if vs[i-1] >= vs[i] {
			t.Fatalf("%v: chain not strictly ascending at %d: %v", l.Policy(), i, vs)
		}
	}
	if len(vs) != l.Len() {
		t.Fatalf("%v: chain has %d values, store counts %d", l.Policy(), len(vs), l.Len())
	}
	if held := l.Stats().HeldLocks; held != 0 {
		t.Fatalf("%v: %d locks still held at a quiescent point", l.Policy(), held)
	}
	return vs
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSequenceSemantics(t *testing.T) {
	for p, l := range newLists(Option{}) {
		var got []bool
		for _, step := range []func(int) (bool, error){l.Insert, l.Insert, l.Member, l.Delete, l.Member} {
			ok, err := step(5)
			if err != nil {
				t.Fatal(p, "unexpected error:", err)
			}
			got = append(got, ok)
		}
		want := []bool{true, false, true, true, false}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("%v: step %d got %v want %v", p, i, got, want)
			}
		}
		checkChain(t, l)
	}
}

func TestMatchesSetModel(t *testing.T) {
	for p, l := range newLists(Option{}) {
		r := rand.New(rand.NewSource(42))
		model := map[int]bool{}
		for i := 0; i < 5000; i++ {
			v := r.Intn(300) - 150
			var ok bool
			var err error
			switch r.Intn(3) {
			case 0:
				ok, err = l.Insert(v)
				if ok != !model[v] {
					t.Fatalf("%v: insert %d got %v with model %v", p, v, ok, model[v])
				}
				model[v] = true
			case 1:
				ok, err = l.Delete(v)
				if ok != model[v] {
					t.Fatalf("%v: delete %d got %v with model %v", p, v, ok, model[v])
				}
				delete(model, v)
			default:
				ok, err = l.Member(v)
				if ok != model[v] {
					t.Fatalf("%v: member %d got %v with model %v", p, v, ok, model[v])
				}
			}
			if err != nil {
				t.Fatal(p, "unexpected error:", err)
			}
		}

		want := make([]int, 0, len(model))
		for v := range model {
			want = append(want, v)
		}
		sort.Ints(want)
		if got := checkChain(t, l); !equalInts(got, want) {
			t.Fatalf("%v: chain %v want %v", p, got, want)
		}
	}
}

func TestInsertDeleteRoundTrip(t *testing.T) {
	for p, l := range newLists(Option{}) {
		for _, v := range []int{10, 30, 20, 50, 40} {
			l.Insert(v)
		}
		before := checkChain(t, l)
		for _, v := range []int{5, 25, 60} {
			if ok, _ := l.Insert(v); !ok {
				t.Fatal(p, "insert", v, "should succeed")
			}
			if ok, _ := l.Delete(v); !ok {
				t.Fatal(p, "delete", v, "should succeed")
			}
			if after := checkChain(t, l); !equalInts(before, after) {
				t.Fatalf("%v: round trip of %d changed chain %v to %v", p, v, before, after)
			}
		}
	}
}

func TestDeleteMissing(t *testing.T) {
	for p, l := range newLists(Option{}) {
		if ok, err := l.Delete(1); ok || err != nil {
			t.Fatal(p, "delete on empty list should report not found", ok, err)
		}
		checkChain(t, l)

		for _, v := range []int{2, 4, 6} {
			l.Insert(v)
		}
		for _, v := range []int{1, 3, 7, 100} {
			if ok, err := l.Delete(v); ok || err != nil {
				t.Fatal(p, "delete", v, "should report not found", ok, err)
			}
		}
		if got := checkChain(t, l); !equalInts(got, []int{2, 4, 6}) {
			t.Fatal(p, "missing deletes changed the chain", got)
		}
	}
}

func TestHeadAndTailEdits(t *testing.T) {
	for p, l := range newLists(Option{}) {
		l.Insert(5)
		l.Insert(1)
		l.Insert(9)
		l.Delete(1)
		l.Delete(9)
		l.Insert(0)
		if got := checkChain(t, l); !equalInts(got, []int{0, 5}) {
			t.Fatal(p, "bad chain", got)
		}
		l.Delete(0)
		l.Delete(5)
		if !l.IsEmpty() {
			t.Fatal(p, "list should be empty", l)
		}
	}
}

func TestClear(t *testing.T) {
	for p, l := range newLists(Option{}) {
		for v := 0; v < 100; v++ {
			l.Insert(v)
		}
		l.Clear()
		if !l.IsEmpty() || l.String() != "[]" {
			t.Fatal(p, "clear left values", l)
		}
		if ok, _ := l.Member(3); ok {
			t.Fatal(p, "member after clear")
		}
		if ok, _ := l.Insert(3); !ok {
			t.Fatal(p, "list should be usable after clear")
		}
		checkChain(t, l)
	}
}

func TestRangeAndString(t *testing.T) {
	for p, l := range newLists(Option{}) {
		for _, v := range []int{3, -1, 2} {
			l.Insert(v)
		}
		if s := l.String(); s != "[-1 2 3]" {
			t.Fatal(p, "bad string", s)
		}

		var seen []int
		err := l.Range(func(v int) bool {
			seen = append(seen, v)
			return v < 2
		})
		if err != nil || !equalInts(seen, []int{-1, 2}) {
			t.Fatal(p, "range should stop when fn returns false", seen, err)
		}
		checkChain(t, l)
	}
}

func TestRangePanicReleasesLocks(t *testing.T) {
	for p, l := range newLists(Option{}) {
		l.Insert(1)
		l.Insert(2)
		func() {
			defer func() {
				if recover() == nil {
					t.Fatal(p, "panic should propagate")
				}
			}()
			l.Range(func(v int) bool {
				panic("callback failed")
			})
		}()
		if l.Stats().Poisoned {
			t.Fatal(p, "a panicking reader should not poison the list")
		}
		checkChain(t, l)
	}
}

func TestCouplingHoldsAtMostTwoLocks(t *testing.T) {
	l := New(Option{Policy: Coupling})
	for v := 0; v < 200; v += 2 {
		l.Insert(v)
	}
	l.ResetStats()

	l.Member(150)
	l.Insert(151)
	l.Delete(151)
	l.Delete(1000)
	l.Insert(-1)
	l.Delete(-1)

	stats := l.Stats()
	if stats.PeakHeld > 2 {
		t.Fatal("lock coupling held more than two locks at once:", stats.PeakHeld)
	}
	if stats.Acquisitions == 0 || stats.HeldLocks != 0 {
		t.Fatal("bad lock accounting", stats)
	}
}

func TestCoarsePoliciesTakeOneLock(t *testing.T) {
	for _, p := range []Policy{Exclusive, ReadWrite} {
		l := New(Option{Policy: p})
		for v := 0; v < 50; v++ {
			l.Insert(v)
		}
		l.ResetStats()
		l.Member(49)
		l.Delete(25)
		if stats := l.Stats(); stats.Acquisitions != 2 || stats.PeakHeld != 1 {
			t.Fatal(p, "coarse policy should take one lock per operation", stats)
		}
	}
}

func TestAllocationFailure(t *testing.T) {
	for p, l := range newLists(Option{Capacity: 2}) {
		l.Insert(1)
		l.Insert(3)

		ok, err := l.Insert(2)
		if ok || errors.Cause(err) != ErrAllocation {
			t.Fatal(p, "insert past capacity should fail with ErrAllocation", ok, err)
		}
		if ok, err := l.Insert(3); ok || err != nil {
			t.Fatal(p, "duplicate insert needs no allocation", ok, err)
		}
		if got := checkChain(t, l); !equalInts(got, []int{1, 3}) {
			t.Fatal(p, "failed insert changed the chain", got)
		}

		l.Delete(1)
		if ok, err := l.Insert(2); !ok || err != nil {
			t.Fatal(p, "insert after delete should fit", ok, err)
		}
		checkChain(t, l)
	}
}

func TestPoisonedAfterPanic(t *testing.T) {
	for p, l := range newLists(Option{}) {
		l.Insert(1)
		l.Insert(9)
		l.testHook = func(op string, v int) {
			if op == "insert" && v == 5 {
				panic("aborted mutation")
			}
		}

		func() {
			defer func() {
				if recover() == nil {
					t.Fatal(p, "panic should propagate to the caller")
				}
			}()
			l.Insert(5)
		}()

		stats := l.Stats()
		if !stats.Poisoned || stats.HeldLocks != 0 {
			t.Fatal(p, "bad stats after panic", stats)
		}
		for _, op := range []func(int) (bool, error){l.Member, l.Insert, l.Delete} {
			if _, err := op(9); errors.Cause(err) != ErrPoisoned {
				t.Fatal(p, "expect ErrPoisoned, got", err)
			}
		}
		if err := l.Range(func(int) bool { return true }); errors.Cause(err) != ErrPoisoned {
			t.Fatal(p, "expect ErrPoisoned from range, got", err)
		}
		if held := l.Stats().HeldLocks; held != 0 {
			t.Fatal(p, "poisoned operations leaked locks", held)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range Policies() {
		got, err := ParsePolicy(p.String())
		if err != nil || got != p {
			t.Fatal("round trip of", p, "gave", got, err)
		}
	}
	if _, err := ParsePolicy("spin"); err == nil {
		t.Fatal("unknown policy should fail")
	}
	if New(Option{Policy: Policy(42)}).Policy() != Coupling {
		t.Fatal("unknown policy should fall back to coupling")
	}
}
