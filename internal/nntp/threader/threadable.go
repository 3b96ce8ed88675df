// Package threader implements Jamie Zawinski's message-threading algorithm
// (https://www.jwz.org/doc/threading.html) over an arbitrary collection of
// Threadable messages, as used to reconstruct NNTP/mail conversation trees
// from their References headers.
package threader

// Threadable is the minimal interface a message type must satisfy to be
// threaded. Child/Next form the resulting tree: Child is a message's
// first reply, Next is its next sibling reply to the same parent.
type Threadable interface {
	// MessageThreadID returns this message's own id (e.g. Message-ID).
	MessageThreadID() string
	// MessageThreadReferences returns the ids of messages this one
	// references, oldest first, as parsed from a References header.
	MessageThreadReferences() []string

	// IsDummy reports whether this is a placeholder inserted for a
	// referenced-but-never-seen message.
	IsDummy() bool
	// MakeDummy returns a new placeholder of the same concrete type,
	// used when a root-set entry never received a real message.
	MakeDummy() Threadable

	Child() Threadable
	SetChild(child Threadable)
	Next() Threadable
	SetNext(next Threadable)

	// SimplifiedSubject returns the subject with leading "Re:"-style
	// reply markers and whitespace stripped.
	SimplifiedSubject() string
	// SubjectIsReply reports whether this message declared itself a
	// reply (carried a non-empty References header), independent of
	// what its subject text says.
	SubjectIsReply() bool
}
