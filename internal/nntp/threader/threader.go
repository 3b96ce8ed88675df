package threader

import "fmt"

// Thread builds a threaded conversation tree from messages and returns the
// first root-set entry (its Next chain holds the remaining roots), or nil
// if messages is empty or every message in it was a dummy. Messages that
// report IsDummy() true are skipped entirely, matching the original's
// "never buildContainer a dummy" rule -- callers pass dummies in only to
// let an earlier partial thread be re-threaded alongside real messages.
func Thread(messages []Threadable) Threadable {
	if messages == nil {
		return nil
	}

	idTable := make(map[string]*container)
	for _, t := range messages {
		if !t.IsDummy() {
			buildContainer(t, idTable)
		}
	}
	if len(idTable) == 0 {
		return nil
	}

	root := findRootSet(idTable)
	idTable = nil

	pruneEmptyContainers(root)
	root.reverseChildren()
	gatherSubjects(root)

	for r := root.child; r != nil; r = r.next {
		if r.threadable == nil {
			r.threadable = r.child.threadable.MakeDummy()
		}
	}

	if root.child == nil {
		return nil
	}
	result := root.child.threadable
	root.flush()
	return result
}

var bogusIDCounter int

// buildContainer inserts threadable's container into idTable (creating a
// fresh one, or resolving a forward-reference placeholder already there
// into a duplicate-id "bogus" container), then links its References chain
// of containers together and makes the last reference this container's
// parent -- unless that would introduce a cycle.
func buildContainer(threadable Threadable, idTable map[string]*container) {
	id := threadable.MessageThreadID()
	c := idTable[id]

	if c != nil {
		if c.threadable != nil {
			// Duplicate id: give this message its own placeholder id so
			// it doesn't clobber the container already claimed by the
			// earlier message with the same id.
			bogusIDCounter++
			id = fmt.Sprintf("<Bogus-id:%d>", bogusIDCounter)
			c = nil
		} else {
			c.threadable = threadable
		}
	}
	if c == nil {
		c = &container{threadable: threadable}
		idTable[id] = c
	}

	var parentRef *container
	for _, refID := range threadable.MessageThreadReferences() {
		ref := idTable[refID]
		if ref == nil {
			ref = &container{}
			idTable[refID] = ref
		}
		if parentRef != nil && ref.parent == nil && parentRef != ref && !ref.findChild(parentRef) {
			ref.parent = parentRef
			ref.next = parentRef.child
			parentRef.child = ref
		}
		parentRef = ref
	}

	if parentRef != nil && (parentRef == c || c.findChild(parentRef)) {
		parentRef = nil
	}

	if c.parent != nil {
		unlinkFromParent(c)
	}

	if parentRef != nil {
		c.parent = parentRef
		c.next = parentRef.child
		parentRef.child = c
	}
}

// unlinkFromParent removes c from its current parent's child list, used
// when a forward-reference guess about c's parent is superseded by the
// real message's own References header.
func unlinkFromParent(c *container) {
	var prev *container
	rest := c.parent.child
	for rest != nil && rest != c {
		prev = rest
		rest = rest.next
	}
	if rest == nil {
		panic("threader: container not found in its own parent's child list")
	}
	if prev == nil {
		c.parent.child = c.next
	} else {
		prev.next = c.next
	}
	c.next = nil
	c.parent = nil
}

// findRootSet collects every container with no parent into a synthetic
// root container's child list.
func findRootSet(idTable map[string]*container) *container {
	root := &container{}
	for _, c := range idTable {
		if c.parent == nil {
			c.next = root.child
			root.child = c
		}
	}
	return root
}

// pruneEmptyContainers removes containers for ids that were only ever
// referenced, never actually seen (no threadable and no children), and
// promotes the children of a referenced-but-missing message up to its own
// parent's level so the tree doesn't show a gap.
func pruneEmptyContainers(parent *container) {
	var prev, c, next *container
	c = parent.child
	if c != nil {
		next = c.next
	}

	for c != nil {
		switch {
		case c.threadable == nil && c.child == nil:
			// Empty, no children: drop it.
			if prev == nil {
				parent.child = c.next
			} else {
				prev.next = c.next
			}
			c = prev

		case c.threadable == nil && (c.parent != nil || c.child.next == nil):
			// A referenced-but-missing message with children: splice
			// the children into this container's place, promoting
			// them to this level.
			kids := c.child
			if prev == nil {
				parent.child = kids
			} else {
				prev.next = kids
			}
			tail := kids
			for tail.next != nil {
				tail.parent = c.parent
				tail = tail.next
			}
			tail.parent = c.parent
			tail.next = c.next
			next = kids
			c = prev

		case c.child != nil:
			pruneEmptyContainers(c)
		}

		prev = c
		c = next
		if c != nil {
			next = c.next
		} else {
			next = nil
		}
	}
}

// gatherSubjects merges root-set entries that share a simplified subject,
// to catch replies whose References header was stripped or never set.
func gatherSubjects(root *container) {
	subjectTable := make(map[string]*container)
	count := 0

	for c := root.child; c != nil; c = c.next {
		subj := rootSubject(c)
		if subj == "" {
			continue
		}
		old, exists := subjectTable[subj]
		if shouldClaimSubject(old, exists, c) {
			subjectTable[subj] = c
			count++
		}
	}
	if count == 0 {
		return
	}

	var prev, c, rest *container
	c = root.child
	if c != nil {
		rest = c.next
	}

	for c != nil {
		subj := rootSubject(c)
		if subj != "" {
			old := subjectTable[subj]
			if old != c {
				if prev == nil {
					root.child = c.next
				} else {
					prev.next = c.next
				}
				c.next = nil
				mergeIntoDummy(old, c)
				c = prev
			}
		}

		prev = c
		c = rest
		if rest != nil {
			rest = rest.next
		} else {
			rest = nil
		}
	}
}

func rootSubject(c *container) string {
	t := c.threadable
	if t == nil {
		t = c.child.threadable
	}
	return t.SimplifiedSubject()
}

func shouldClaimSubject(old *container, exists bool, c *container) bool {
	if !exists {
		return true
	}
	if c.threadable == nil && old.threadable != nil {
		return true
	}
	return old.threadable != nil && old.threadable.SubjectIsReply() &&
		c.threadable != nil && !c.threadable.SubjectIsReply()
}

// mergeIntoDummy merges c into old, the earlier root-set entry with the
// same subject, per the original handleMerging: two dummies splice their
// children together, a reply joins the non-reply as a child, and
// otherwise both become children of a freshly synthesized dummy.
func mergeIntoDummy(old, c *container) {
	switch {
	case old.threadable == nil && c.threadable == nil:
		tail := old.child
		for tail != nil && tail.next != nil {
			tail = tail.next
		}
		if tail != nil {
			tail.next = c.child
		}
		for kid := c.child; kid != nil; kid = kid.next {
			kid.parent = old
		}
		c.child = nil

	case old.threadable == nil ||
		(c.threadable != nil && c.threadable.SubjectIsReply() && !old.threadable.SubjectIsReply()):
		c.parent = old
		c.next = old.child
		old.child = c

	default:
		newc := &container{threadable: old.threadable, child: old.child}
		for tail := newc.child; tail != nil; tail = tail.next {
			tail.parent = newc
		}

		old.threadable = nil
		old.child = nil

		c.parent = old
		newc.parent = old

		old.child = c
		c.next = newc
	}
}
