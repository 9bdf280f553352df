package scoring

// Composite weights
const (
	relevanceWeight  = 0.5
	qualityWeight    = 0.3
	usefulnessWeight = 0.2
)

// DegradedSubScore is assigned to every sub-score of a document that could not be judged.
const DegradedSubScore = 0.1

// Document is one candidate source to be scored
type Document struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SubScores are the three judged dimensions, each in [0,1]
type SubScores struct {
	Relevance  float64 `json:"relevance"`
	Quality    float64 `json:"quality"`
	Usefulness float64 `json:"usefulness"`
}

// DocumentScore is an immutable scored source. Share it by pointer.
type DocumentScore struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	Title      string     `json:"title"`
	Snippet    string     `json:"snippet,omitempty"`
	SourceType SourceType `json:"source_type"`
	Relevance  float64    `json:"relevance"`
	Quality    float64    `json:"quality"`
	Usefulness float64    `json:"usefulness"`
	Multiplier float64    `json:"multiplier"`
	Composite  float64    `json:"composite"`
	Final      float64    `json:"final"`
	Degraded   bool       `json:"degraded,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// NewDocumentScore computes the composite and final scores. The result is
// fully determined by the sub-scores and the source type.
func NewDocumentScore(doc Document, st SourceType, sub SubScores) *DocumentScore {
	rel := clamp01(sub.Relevance)
	qual := clamp01(sub.Quality)
	use := clamp01(sub.Usefulness)

	composite := relevanceWeight*rel + qualityWeight*qual + usefulnessWeight*use
	mult := Multiplier(st)

	return &DocumentScore{
		ID:         doc.ID,
		URL:        doc.URL,
		Title:      doc.Title,
		Snippet:    doc.Snippet,
		SourceType: st,
		Relevance:  rel,
		Quality:    qual,
		Usefulness: use,
		Multiplier: mult,
		Composite:  composite,
		Final:      composite * mult,
	}
}

// NewDegradedScore returns the minimum-confidence score for a document whose judgment failed.
func NewDegradedScore(doc Document, st SourceType, reason string) *DocumentScore {
	s := NewDocumentScore(doc, st, SubScores{
		Relevance:  DegradedSubScore,
		Quality:    DegradedSubScore,
		Usefulness: DegradedSubScore,
	})
	s.Degraded = true
	s.Reason = reason
	return s
}

func clamp01(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
