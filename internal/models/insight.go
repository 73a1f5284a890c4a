package models

// QualitativeInsight is one themed finding derived from transcript text.
// Sentiment is in [-1,1], confidence in [0,1]. Cohesion and ChunkCount
// record how well-supported the theme cluster was and feed the
// cohesion-weighted analysis confidence during synthesis.
type QualitativeInsight struct {
	Theme            string  `json:"theme"`
	Sentiment        float64 `json:"sentiment"`
	Quote            string  `json:"quote"`
	Confidence       float64 `json:"confidence"`
	SourceDocumentID string  `json:"source_document_id"`
	ChunkCount       int     `json:"chunk_count"`
	Cohesion         float64 `json:"cohesion"`
}
