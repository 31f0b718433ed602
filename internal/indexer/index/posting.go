package index

// PostingList holds the ids of the documents containing a term, ascending
// and without duplicates.
type PostingList []int

// TermEntry pairs a term with its postings.
type TermEntry struct {
	Term     string      `json:"t"`
	Postings PostingList `json:"p"`
}

// TermCount is a term and the number of documents containing it.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}
