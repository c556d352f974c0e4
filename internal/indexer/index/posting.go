// Package index defines the documents and postings that live in index pages.
package index

// DocumentState marks a posting as curated. The zero value is an organic
// (crawled) posting; every other value pins the posting on its page.
type DocumentState int

const (
	StateOrganic            DocumentState = 0
	StateDeleted            DocumentState = -1
	StateFromUser           DocumentState = 2
	StateFromGoogle         DocumentState = 3
	StateOrganicApproved    DocumentState = 7
	StateFromUserApproved   DocumentState = 8
	StateFromGoogleApproved DocumentState = 9
)

func (s DocumentState) String() string {
	switch s {
	case StateOrganic:
		return "organic"
	case StateDeleted:
		return "deleted"
	case StateFromUser:
		return "from_user"
	case StateFromGoogle:
		return "from_google"
	case StateOrganicApproved:
		return "organic_approved"
	case StateFromUserApproved:
		return "from_user_approved"
	case StateFromGoogleApproved:
		return "from_google_approved"
	default:
		return "unknown"
	}
}

// Document is the content of a crawled page as it enters the indexer.
type Document struct {
	Title   string
	URL     string
	Extract string
	Score   float64
}

// Posting is a document filed under a term on a specific page. An empty
// Term means the posting has not been tied to a term yet and must be
// repaired before it can be stored.
type Posting struct {
	Document
	Term  string
	State DocumentState
}

// NewPosting files doc under term as an organic posting.
func NewPosting(doc Document, term string) Posting {
	return Posting{Document: doc, Term: term}
}

// Curated reports whether the posting was pinned by an administrator.
func (p Posting) Curated() bool {
	return p.State != StateOrganic
}

// HasTerm reports whether the posting carries a term.
func (p Posting) HasTerm() bool {
	return p.Term != ""
}

// Page is the ordered content of a single index page.
type Page []Posting

// Split partitions the page into curated and organic postings, keeping the
// page order inside each partition.
func (p Page) Split() (curated, organic Page) {
	for _, posting := range p {
		if posting.Curated() {
			curated = append(curated, posting)
		} else {
			organic = append(organic, posting)
		}
	}
	return curated, organic
}

// TokenizedDocument is a document together with the terms it is filed under.
type TokenizedDocument struct {
	Document
	Tokens []string
}
