package events

// Event types emitted through the outbox.
const (
	ConversionRecorded  = "conversion.recorded"
	ConversionValidated = "conversion.validated"
	ConversionRejected  = "conversion.rejected"
	CommissionCreated   = "commission.created"
	CommissionApproved  = "commission.approved"
	CommissionRejected  = "commission.rejected"
	PayoutGenerated     = "payout.generated"
	PayoutProcessing    = "payout.processing"
	PayoutPaid          = "payout.paid"
	PayoutCancelled     = "payout.cancelled"
	AffiliateApproved   = "affiliate.approved"
	AffiliateRejected   = "affiliate.rejected"
)

// Aggregate types attached to outbox rows.
const (
	AggregateConversion = "conversion"
	AggregateCommission = "commission"
	AggregatePayout     = "payout"
	AggregateAffiliate  = "affiliate"
)
