package models

// ResearchRequest is the body of POST /api/research.
type ResearchRequest struct {
	Topic string `json:"topic"`
}

// ResearchResponse carries a generated research report.
type ResearchResponse struct {
	Research string `json:"research"`
	Source   string `json:"source,omitempty"`
}

// ImageRequest is the body of POST /api/generate-image.
type ImageRequest struct {
	Text string `json:"text"`
}

// ImageResponse carries extracted keywords and the concept image URL.
type ImageResponse struct {
	Keywords string `json:"keywords"`
	ImageURL string `json:"imageUrl"`
	Source   string `json:"source"`
}

// ExportRequest is the body of POST /api/export.
type ExportRequest struct {
	Text   string `json:"text" binding:"required"`
	Title  string `json:"title"`
	Format string `json:"format"`
	Header bool   `json:"header"`
}
