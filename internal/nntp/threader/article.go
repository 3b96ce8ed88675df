package threader

import (
	"fmt"
	"strings"
)

// Article is a concrete Threadable backed by NNTP article headers: an id,
// a subject, the References header split into individual ids, and the
// tree pointers Thread fills in.
type Article struct {
	Number     int64
	Subject    string
	From       string
	Date       string
	ID         string
	References []string

	isReply bool
	subject *string // simplified-subject cache, cleared on SetChild/SetNext

	child Threadable
	next  Threadable
}

// NewArticle returns an Article with Number set to -1, the original's
// marker for "this is a dummy until a real message fills it in".
func NewArticle() *Article {
	return &Article{Number: -1}
}

// AddReference appends msgID (or, if it contains embedded whitespace, each
// space-separated id within it) to the article's reference list and marks
// the article as a reply, mirroring a References header's syntax.
func (a *Article) AddReference(msgID string) {
	if msgID == "" {
		return
	}
	a.isReply = true
	a.References = append(a.References, strings.Fields(msgID)...)
}

func (a *Article) flushSubjectCache() { a.subject = nil }

func (a *Article) MessageThreadID() string          { return a.ID }
func (a *Article) MessageThreadReferences() []string { return a.References }
func (a *Article) IsDummy() bool                    { return a.Number == -1 }
func (a *Article) MakeDummy() Threadable            { return NewArticle() }
func (a *Article) Child() Threadable                { return a.child }
func (a *Article) Next() Threadable                 { return a.next }
func (a *Article) SubjectIsReply() bool             { return a.isReply }

func (a *Article) SetChild(child Threadable) {
	a.child = child
	a.flushSubjectCache()
}

func (a *Article) SetNext(next Threadable) {
	a.next = next
	a.flushSubjectCache()
}

// SimplifiedSubject lazily computes and caches SimplifySubject(a.Subject).
func (a *Article) SimplifiedSubject() string {
	if a.subject == nil {
		s := SimplifySubject(a.Subject)
		a.subject = &s
	}
	return *a.subject
}

func (a *Article) String() string {
	return fmt.Sprintf("%d %s %s", a.Number, a.ID, a.Subject)
}
