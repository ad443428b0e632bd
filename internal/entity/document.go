package entity

// Document is a unit of background text stored in the vector index
type Document struct {
	ID       int64             `json:"id"`
	Text     string            `json:"text"`
	Category Category          `json:"category"`
	Topic    string            `json:"topic"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy so callers never share metadata maps
func (d Document) Clone() Document {
	out := d
	if d.Metadata != nil {
		out.Metadata = make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// RetrievalResult is a single ranked hit returned by a similarity search.
// Score is the inner product for the flat index and cosine for the scan.
type RetrievalResult struct {
	DocumentID int64             `json:"document_id"`
	Text       string            `json:"text"`
	Score      float64           `json:"score"`
	Rank       int               `json:"rank"`
	Category   Category          `json:"category"`
	Topic      string            `json:"topic"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
