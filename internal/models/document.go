package models

import "time"

// Document is one ingested source file moving through the pipeline. The
// original bytes live in the blob store under BlobRef; the document row
// carries only the extracted field payload and state.
type Document struct {
	ID           string            `json:"id"`
	DeclaredType DocumentType      `json:"declared_type,omitempty"`
	DetectedType DocumentType      `json:"detected_type,omitempty"`
	Status       DocumentStatus    `json:"status"`
	SourceName   string            `json:"source_name"`
	BlobRef      string            `json:"blob_ref"`
	Checksum     string            `json:"checksum"`
	Confidence   float64           `json:"confidence"`
	Fields       map[string]string `json:"fields,omitempty"`
	ReviewReason string            `json:"review_reason,omitempty"`
	FailureInfo  string            `json:"failure_info,omitempty"`
	// ManuallyVerified marks fields a human has confirmed or corrected.
	ManuallyVerified bool       `json:"manually_verified"`
	RetryCount       int        `json:"retry_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
}

// EffectiveType returns the declared type when present, otherwise the type
// the classifier detected.
func (d *Document) EffectiveType() DocumentType {
	if d.DeclaredType != "" {
		return d.DeclaredType
	}
	return d.DetectedType
}

// IsFinal reports whether the pipeline is done with this document.
// Needs-review documents are final for the pipeline; only the review queue
// moves them afterwards.
func (d *Document) IsFinal() bool {
	switch d.Status {
	case DocStatusCompleted, DocStatusFailed, DocStatusNeedsReview:
		return true
	}
	return false
}

// Claimable reports whether a worker may take this document.
func (d *Document) Claimable() bool {
	return d.Status == DocStatusPending
}
