package news

// Origin identifies which extraction strategy produced a content candidate.
type Origin string

const (
	OriginReadability Origin = "primary-extractor"
	OriginMetadata    Origin = "structured-metadata"
	OriginSelector    Origin = "block-heuristic"
	OriginFeedSummary Origin = "feed-summary"
	OriginFeedDesc    Origin = "feed-description"
)

// FromPage reports whether the candidate came out of the fetched article
// page rather than the feed's own text fields.
func (o Origin) FromPage() bool {
	switch o {
	case OriginReadability, OriginMetadata, OriginSelector:
		return true
	}
	return false
}

// Candidate is one extracted text attempt for an article body. Several may
// exist per entry; PickContent selects exactly one.
type Candidate struct {
	Text   string
	Origin Origin
}
