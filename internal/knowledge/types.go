package knowledge

// Document is one stored knowledge-base entry.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Match is a document returned by similarity search, closest first.
type Match struct {
	Document
	Distance float64 `json:"distance"`
}

// Stats summarizes the state of the active collection.
type Stats struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	Count int    `json:"count"`
}
