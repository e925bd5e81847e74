package enhance

// DocumentData contains the AI-extracted information for one scanned document
type DocumentData struct {
	Title        string  `json:"title"`
	OCRContent   string  `json:"ocrContent"`
	QualityScore float64 `json:"qualityScore"` // Estimated scan quality, 0 to 1
}

// Enhancer defines the interface for document enhancement operations
type Enhancer interface {
	// EnhanceDocument analyzes a document image/PDF and extracts a title,
	// the OCR text content and a quality estimate
	EnhanceDocument(imageData []byte, contentType string) (*DocumentData, error)
	// Close closes the enhancer and releases resources
	Close() error
}
