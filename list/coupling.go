package list

// cursor walks the chain for one operation and remembers exactly which locks it holds.
//
// Under Coupling a writer holds the lock of pred (or the head lock while pred is the head slot)
// and the lock of curr. A reader holds only curr, taking the next lock before dropping the
// current one. Locks are always taken in chain order, head lock first, so walkers never
// deadlock and never pass each other. Under the coarse policies the cursor holds the global
// lock for the whole operation and the per-node steps take no locks.
type cursor struct {
	l     *List
	write bool

	global bool
	head   bool
	pred   *node
	curr   *node

	// predHeld and currHeld track node locks so close releases only what was acquired.
	predHeld bool
	currHeld bool
}

func (l *List) open(write bool) *cursor {
	return &cursor{l: l, write: write}
}

// acquireSlot takes the lock that guards the head slot.
func (c *cursor) acquireSlot() {
	l := c.l
	switch {
	case l.coupled():
		l.headMu.Hold(&l.gauge)
		c.head = true
	case l.policy == ReadWrite && !c.write:
		l.global.HoldForRead(&l.gauge)
		c.global = true
	default:
		l.global.Hold(&l.gauge)
		c.global = true
	}
}

// start positions the cursor on the first node.
func (c *cursor) start() error {
	c.acquireSlot()
	if err := c.l.checkPoison(); err != nil {
		return err
	}
	c.curr = c.l.head
	if err := c.lockCurr(); err != nil {
		return err
	}
	if !c.write && c.head {
		c.releaseHead()
	}
	return nil
}

// seek advances until curr is nil or curr.value >= v.
func (c *cursor) seek(v int) error {
	for c.curr != nil && c.curr.value < v {
		if err := c.advance(); err != nil {
			return err
		}
	}
	return nil
}

// advance moves one node forward.
func (c *cursor) advance() error {
	if c.write {
		// curr stays locked, so nobody can rewrite curr.next or unlink it after pred is dropped.
		c.releasePred()
		c.pred, c.predHeld = c.curr, c.currHeld
		c.curr, c.currHeld = c.curr.next, false
		return c.lockCurr()
	}

	prev, prevHeld := c.curr, c.currHeld
	c.curr, c.currHeld = c.curr.next, false
	err := c.lockCurr()
	if prevHeld {
		prev.mu.Release(&c.l.gauge)
	}
	return err
}

func (c *cursor) lockCurr() error {
	if c.curr == nil || !c.l.coupled() {
		return nil
	}
	c.curr.mu.Hold(&c.l.gauge)
	c.currHeld = true
	return c.l.checkPoison()
}

// link publishes n between pred and curr. n.next must already be curr.
func (c *cursor) link(n *node) {
	if c.pred == nil {
		c.l.head = n
	} else {
		c.pred.next = n
	}
}

// unlink removes curr from the chain and returns it. curr stays locked until close.
func (c *cursor) unlink() *node {
	victim := c.curr
	if c.pred == nil {
		c.l.head = victim.next
	} else {
		c.pred.next = victim.next
	}
	return victim
}

func (c *cursor) releaseHead() {
	if c.head {
		c.head = false
		c.l.headMu.Release(&c.l.gauge)
	}
}

func (c *cursor) releasePred() {
	if c.pred == nil {
		c.releaseHead()
		return
	}
	if c.predHeld {
		c.predHeld = false
		c.pred.mu.Release(&c.l.gauge)
	}
}

// close releases every held lock in chain order. It is safe to call more than once.
func (c *cursor) close() {
	c.releaseHead()
	if c.predHeld {
		c.predHeld = false
		c.pred.mu.Release(&c.l.gauge)
	}
	if c.currHeld {
		c.currHeld = false
		c.curr.mu.Release(&c.l.gauge)
	}
	if c.global {
		c.global = false
		if c.l.policy == ReadWrite && !c.write {
			c.l.global.ReleaseForRead(&c.l.gauge)
		} else {
			c.l.global.Release(&c.l.gauge)
		}
	}
}

// finish is deferred by every operation. A panic escaping a writer poisons the list before
// the locks are given back, so whoever acquires them next sees the poison.
func (c *cursor) finish() {
	if r := recover(); r != nil {
		if c.write {
			c.l.poison(r)
		}
		c.close()
		panic(r)
	}
	c.close()
}
