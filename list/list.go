// Package list implements a sorted set of integers kept in a singly linked chain that many
// goroutines may use at once.
//
// The synchronization discipline is picked at construction. Coupling gives every node its own
// lock and walks the chain hand over hand, holding at most two locks at a time, with a separate
// head lock serializing changes to the first link. Exclusive and ReadWrite guard the whole chain
// with one mutex or one reader-writer lock. The chain algorithms are shared by all three; only
// the lock calls made while walking differ.
//
// Operations cannot be cancelled once started. Absence of a value is a false result, never an
// error; errors are reserved for node exhaustion (ErrAllocation) and for a list left poisoned by
// a panic in the middle of a mutation (ErrPoisoned).
package list

import (
	"strconv"
	"strings"

	"github.com/feynman-go/lockchain/mutex"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Set is the operation surface shared by List and its decorators.
type Set interface {
	Insert(v int) (bool, error)
	Member(v int) (bool, error)
	Delete(v int) (bool, error)
	Range(fn func(v int) bool) error
	Len() int
	Clear()
}

type Policy int

const (
	// Coupling locks node by node while walking.
	Coupling Policy = iota
	// Exclusive serializes every operation behind one mutex.
	Exclusive
	// ReadWrite lets Member and Range share one lock and serializes Insert and Delete.
	ReadWrite
)

var policyNames = map[Policy]string{
	Coupling:  "coupling",
	Exclusive: "exclusive",
	ReadWrite: "rwlock",
}

func (p Policy) String() string {
	if s, ok := policyNames[p]; ok {
		return s
	}
	return "policy(" + strconv.Itoa(int(p)) + ")"
}

// ParsePolicy maps "coupling", "exclusive" or "rwlock" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	for p, name := range policyNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, errors.Errorf("unknown policy %q", s)
}

// Policies lists every policy in declaration order.
func Policies() []Policy {
	return []Policy{Coupling, Exclusive, ReadWrite}
}

type Option struct {
	Policy Policy
	// Capacity caps the number of live nodes. Zero means unbounded.
	Capacity int
	Logger   *zap.Logger
}

type List struct {
	policy Policy
	logger *zap.Logger

	// head is the zeroth slot. Under Coupling it may only be read or written while headMu is held.
	head   *node
	headMu mutex.Mutex

	// global guards the whole chain under Exclusive and ReadWrite.
	global mutex.RWMutex

	nodes    store
	gauge    mutex.Gauge
	poisoned atomic.Bool

	// testHook runs after the links are rewritten and before the locks are released.
	testHook func(op string, v int)
}

var _ Set = (*List)(nil)

func New(option Option) *List {
	if option.Logger == nil {
		option.Logger = zap.L()
	}
	if _, ok := policyNames[option.Policy]; !ok {
		option.Policy = Coupling
	}
	return &List{
		policy: option.Policy,
		logger: option.Logger.With(zap.Stringer("policy", option.Policy)),
		nodes:  store{capacity: int64(option.Capacity)},
	}
}

func (l *List) Policy() Policy {
	return l.policy
}

func (l *List) coupled() bool {
	return l.policy == Coupling
}

// Member reports whether v is in the set.
func (l *List) Member(v int) (found bool, err error) {
	c := l.open(false)
	defer c.finish()
	if err = c.start(); err != nil {
		return false, errors.Wrapf(err, "member %d", v)
	}
	if err = c.seek(v); err != nil {
		return false, errors.Wrapf(err, "member %d", v)
	}
	return c.curr != nil && c.curr.value == v, nil
}

// Insert adds v. It returns false without changing anything when v is already present.
func (l *List) Insert(v int) (inserted bool, err error) {
	c := l.open(true)
	defer c.finish()
	if err = c.start(); err != nil {
		return false, errors.Wrapf(err, "insert %d", v)
	}
	if err = c.seek(v); err != nil {
		return false, errors.Wrapf(err, "insert %d", v)
	}
	if c.curr != nil && c.curr.value == v {
		return false, nil
	}

	n, err := l.nodes.alloc(v, c.curr)
	if err != nil {
		l.logger.Warn("insert failed", zap.Int("value", v), zap.Int("len", l.nodes.len()), zap.Error(err))
		return false, errors.Wrapf(err, "insert %d", v)
	}
	c.link(n)
	if l.testHook != nil {
		l.testHook("insert", v)
	}
	return true, nil
}

// Delete removes v. It returns false when v is not present.
func (l *List) Delete(v int) (deleted bool, err error) {
	c := l.open(true)
	defer c.finish()
	if err = c.start(); err != nil {
		return false, errors.Wrapf(err, "delete %d", v)
	}
	if err = c.seek(v); err != nil {
		return false, errors.Wrapf(err, "delete %d", v)
	}
	if c.curr == nil || c.curr.value != v {
		return false, nil
	}

	victim := c.unlink()
	if l.testHook != nil {
		l.testHook("delete", v)
	}
	c.close()
	l.nodes.free(victim)
	return true, nil
}

// Range calls fn for every value in ascending order until fn returns false.
// fn runs while the node holding the value is locked and must not call back into the list.
func (l *List) Range(fn func(v int) bool) error {
	c := l.open(false)
	defer c.finish()
	if err := c.start(); err != nil {
		return errors.Wrap(err, "range")
	}
	for c.curr != nil {
		if !fn(c.curr.value) {
			return nil
		}
		if err := c.advance(); err != nil {
			return errors.Wrap(err, "range")
		}
	}
	return nil
}

// Values returns the current contents in ascending order.
func (l *List) Values() ([]int, error) {
	vs := make([]int, 0, l.Len())
	err := l.Range(func(v int) bool {
		vs = append(vs, v)
		return true
	})
	return vs, err
}

// Len returns the number of live nodes.
func (l *List) Len() int {
	return l.nodes.len()
}

func (l *List) IsEmpty() bool {
	return l.Len() == 0
}

func (l *List) String() string {
	vs, err := l.Values()
	if err != nil {
		return "[" + err.Error() + "]"
	}
	sb := strings.Builder{}
	sb.WriteByte('[')
	for i, v := range vs {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	sb.WriteByte(']')
	return sb.String()
}

// Clear frees every node. No other operation may be running on the list while it does.
func (l *List) Clear() {
	c := l.open(true)
	defer c.finish()
	c.acquireSlot()

	first := l.head
	l.head = nil
	c.close()

	var freed int
	for n := first; n != nil; {
		n.mu.Hold(&l.gauge)
		next := n.next
		n.mu.Release(&l.gauge)
		l.nodes.free(n)
		n = next
		freed++
	}
	l.logger.Debug("list cleared", zap.Int("freed", freed))
}

type Stats struct {
	Policy       Policy
	Len          int
	HeldLocks    int64
	Acquisitions int64
	PeakHeld     int64
	Poisoned     bool
}

func (l *List) Stats() Stats {
	return Stats{
		Policy:       l.policy,
		Len:          l.nodes.len(),
		HeldLocks:    l.gauge.Held(),
		Acquisitions: l.gauge.Acquired(),
		PeakHeld:     l.gauge.Peak(),
		Poisoned:     l.poisoned.Load(),
	}
}

// ResetStats zeroes the acquisition total and peak.
func (l *List) ResetStats() {
	l.gauge.Reset()
}

func (l *List) poison(cause interface{}) {
	if l.poisoned.Swap(true) {
		return
	}
	l.logger.Error("list poisoned", zap.Any("panic", cause))
}

func (l *List) checkPoison() error {
	if l.poisoned.Load() {
		return errors.WithStack(ErrPoisoned)
	}
	return nil
}
