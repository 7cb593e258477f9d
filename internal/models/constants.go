package models

// DocumentType identifies the kind of source document an extractor handles.
type DocumentType string

const (
	DocTypeBankStatement       DocumentType = "bank_statement"
	DocTypeCreditCardStatement DocumentType = "credit_card_statement"
	DocTypeInvoice             DocumentType = "invoice"
	DocTypeCheckImage          DocumentType = "check_image"
	DocTypeHandwrittenNote     DocumentType = "handwritten_note"
	DocTypeSalesReport         DocumentType = "sales_report"
	DocTypeReceipt             DocumentType = "receipt"
)

// DocumentStatus is the document state machine. Pending documents are
// claimable; processing documents belong to exactly one worker; completed,
// failed and needs_review are final for the pipeline (review may still act).
type DocumentStatus string

const (
	DocStatusPending     DocumentStatus = "pending"
	DocStatusProcessing  DocumentStatus = "processing"
	DocStatusCompleted   DocumentStatus = "completed"
	DocStatusFailed      DocumentStatus = "failed"
	DocStatusNeedsReview DocumentStatus = "needs_review"
)

// Review and failure reasons recorded on documents.
const (
	ReasonLowConfidence   = "low_confidence"
	ReasonIncomplete      = "incomplete_fields"
	ReasonAmbiguousDate   = "ambiguous_date"
	ReasonAmbiguousAmount = "ambiguous_amount"
	ReasonNegativeAmount  = "negative_amount"
	ReasonUnclassified    = "unclassified"
	ReasonGarbledContent  = "garbled_content"
	ReasonDuplicate       = "duplicate"
)

// TransactionSide distinguishes money leaving the books from money entering.
type TransactionSide string

const (
	SideOutgoing TransactionSide = "outgoing"
	SideIncoming TransactionSide = "incoming"
)

// Direction is the statement-line direction as the bank reports it.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// ReconciliationStatus tracks a book transaction through matching.
type ReconciliationStatus string

const (
	ReconUnreconciled ReconciliationStatus = "unreconciled"
	ReconMatched      ReconciliationStatus = "matched"
	ReconDisputed     ReconciliationStatus = "disputed"
	ReconManual       ReconciliationStatus = "manual"
)

// MatchType records which strategy produced a reconciliation record.
type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchFuzzy      MatchType = "fuzzy"
	MatchAmountOnly MatchType = "amount_only"
	MatchDateOnly   MatchType = "date_only"
	MatchManual     MatchType = "manual"
)

// RecordStatus marks a reconciliation record live or voided. Voided records
// are retained for the audit trail, never deleted.
type RecordStatus string

const (
	RecordActive RecordStatus = "active"
	RecordVoid   RecordStatus = "void"
)

// AccountKind classifies payment accounts.
type AccountKind string

const (
	AccountChecking   AccountKind = "checking"
	AccountSavings    AccountKind = "savings"
	AccountCreditCard AccountKind = "credit_card"
	AccountCash       AccountKind = "cash"
)

// SystemActor is the actor recorded on audit events the pipeline and matcher
// emit on their own.
const SystemActor = "system"

// File permissions
const (
	PermissionDataFile   = 0600
	PermissionDirectory  = 0750
	PermissionReportFile = 0644
)
