package segment

import "time"

// Published announces a newly written index file to searchers.
type Published struct {
	Name      string    `json:"name"`
	DocCount  int       `json:"doc_count"`
	TermCount int       `json:"term_count"`
	CreatedAt time.Time `json:"created_at"`
}
