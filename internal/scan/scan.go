package scan

import "time"

// ScanRecord represents one saved document scan
type ScanRecord struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	OCRText       string    `json:"ocr_text"`
	QualityScore  float64   `json:"quality_score"`
	OriginalFile  string    `json:"original_file"`
	ProcessedFile string    `json:"processed_file"`
	ContentType   string    `json:"content_type"`
	FileSize      int       `json:"file_size"` // Size of the captured image in bytes
	CreatedAt     time.Time `json:"created_at"`
}

// EnhanceOutcome is the result of running AI enhancement for one session.
// A degraded outcome (service unreachable, unparseable response) carries
// Failed=true so callers can tell it apart from a genuinely empty document.
type EnhanceOutcome struct {
	Title         string  `json:"title"`
	OCRText       string  `json:"ocr_text"`
	QualityScore  float64 `json:"quality_score"`
	ProcessedFile string  `json:"processed_file"`
	Failed        bool    `json:"failed"`
}
