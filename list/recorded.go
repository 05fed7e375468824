package list

import (
	"context"

	"github.com/feynman-go/lockchain/record"
)

// Recorded reports every operation of a Set through a record.Factory.
// Each record carries the operation name, the value and whether the operation hit.
type Recorded struct {
	set     Set
	factory record.Factory
}

var _ Set = (*Recorded)(nil)

func NewRecorded(set Set, factory record.Factory) *Recorded {
	return &Recorded{
		set:     set,
		factory: factory,
	}
}

func (r *Recorded) Insert(v int) (bool, error) {
	return r.do("insert", v, r.set.Insert)
}

func (r *Recorded) Member(v int) (bool, error) {
	return r.do("member", v, r.set.Member)
}

func (r *Recorded) Delete(v int) (bool, error) {
	return r.do("delete", v, r.set.Delete)
}

func (r *Recorded) Range(fn func(v int) bool) error {
	return record.Do(context.Background(), r.factory, "range", func(ctx context.Context) error {
		return r.set.Range(fn)
	})
}

func (r *Recorded) Len() int {
	return r.set.Len()
}

func (r *Recorded) Clear() {
	recorder, _ := r.factory.ActionRecorder(context.Background(), "clear")
	r.set.Clear()
	recorder.Commit(nil)
}

func (r *Recorded) do(name string, v int, op func(int) (bool, error)) (ok bool, err error) {
	recorder, _ := r.factory.ActionRecorder(context.Background(), name, record.IntField("value", v))
	defer func() {
		recorder.Commit(err, record.BoolField("hit", ok))
	}()
	ok, err = op(v)
	return ok, err
}
