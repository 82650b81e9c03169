package domain

// LoanItem is one asset line on an application. Unit value is snapshotted
// at submission so later asset revaluations do not change what was
// approved. Condition and accessories are recorded at issuance and return.
type LoanItem struct {
	ID                  int32  `json:"id"`
	ApplicationID       int32  `json:"application_id"`
	AssetID             int32  `json:"asset_id"`
	Quantity            int32  `json:"quantity"`
	UnitValueCents      int32  `json:"unit_value_cents"`
	LineTotalCents      int32  `json:"line_total_cents"`
	ConditionBefore     string `json:"condition_before,omitempty"`
	ConditionAfter      string `json:"condition_after,omitempty"`
	AccessoriesIssued   string `json:"accessories_issued,omitempty"`
	AccessoriesReturned string `json:"accessories_returned,omitempty"`
}
