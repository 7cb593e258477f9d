package logging

// Standardized field names for structured logging. Using these constants
// keeps log output consistent across the ingestion, matching and review
// components so operators can filter on stable keys.
const (
	FieldDocumentID  = "document_id"
	FieldDocType     = "document_type"
	FieldStatus      = "status"
	FieldAccount     = "account"
	FieldVendor      = "vendor"
	FieldAmount      = "amount"
	FieldDate        = "date"
	FieldStrategy    = "strategy"
	FieldConfidence  = "confidence"
	FieldLineID      = "line_id"
	FieldTxnID       = "transaction_id"
	FieldRecordID    = "record_id"
	FieldReason      = "reason"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
	FieldCount       = "count"
	FieldAttempt     = "attempt"
	FieldFingerprint = "fingerprint"
	FieldBlobRef     = "blob_ref"
	FieldWorker      = "worker"
)
