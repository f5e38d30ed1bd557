package domain

import "time"

// OrderLine is an (identifier, quantity) pair read from an uploaded sales file.
type OrderLine struct {
	Code     string `json:"codigo"`
	Quantity int    `json:"quantidade"`
}

// ExpandedLine is an order line after bundle expansion. ViaBundles lists the
// bundle codes that contributed to the quantity, if any.
type ExpandedLine struct {
	Code       string   `json:"codigo"`
	Quantity   int      `json:"quantidade"`
	ViaBundles []string `json:"via_kits,omitempty"`
}

// MatchedLine is an expanded line found in the catalog, with its projection.
type MatchedLine struct {
	Code        string     `json:"codigo"`
	Name        string     `json:"nome"`
	Category    string     `json:"categoria"`
	Quantity    int        `json:"quantidade"`
	StockBefore int        `json:"estoque_antes"`
	StockAfter  int        `json:"estoque_depois"`
	Risk        RiskBucket `json:"risco"`
	StatusAfter Status     `json:"status_depois"`
}

// UnmatchedLine is an expanded line whose identifier is not in the catalog.
type UnmatchedLine struct {
	Code     string `json:"codigo"`
	Quantity int    `json:"quantidade"`
}

// Reconciliation is the matched/unmatched partition of an expanded upload.
type Reconciliation struct {
	Matched   []MatchedLine   `json:"matched"`
	Unmatched []UnmatchedLine `json:"unmatched"`
}

type ReconciliationSummary struct {
	Matched        int `json:"matched"`
	Unmatched      int `json:"unmatched"`
	Negative       int `json:"negative"`
	Zero           int `json:"zero"`
	OK             int `json:"ok"`
	UnitsRequested int `json:"units_requested"`
}

// Summary counts lines per bucket and the total matched quantity.
func (r Reconciliation) Summary() ReconciliationSummary {
	s := ReconciliationSummary{
		Matched:   len(r.Matched),
		Unmatched: len(r.Unmatched),
	}
	for _, m := range r.Matched {
		s.UnitsRequested += m.Quantity
		switch m.Risk {
		case RiskNegative:
			s.Negative++
		case RiskZero:
			s.Zero++
		default:
			s.OK++
		}
	}
	return s
}

// Direction of a stock mutation, using the wire values of the endpoint.
type Direction string

const (
	DirectionIn  Direction = "entrada"
	DirectionOut Direction = "saida"
)

// MutationRequest is one call to the external stock-mutation endpoint.
type MutationRequest struct {
	Code           string    `json:"codigo"`
	Quantity       int       `json:"quantidade"`
	Direction      Direction `json:"tipo"`
	Actor          string    `json:"usuario"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
}

// MutationResponse is the decoded reply of the stock-mutation endpoint.
type MutationResponse struct {
	Success        bool   `json:"success"`
	ResultingStock *int   `json:"novo_estoque,omitempty"`
	Message        string `json:"message,omitempty"`
}

// SubmitMode selects between local simulation and real submission.
type SubmitMode string

const (
	ModeSimulate SubmitMode = "simulate"
	ModeApply    SubmitMode = "apply"
)

// SubmissionOutcome records the result of one matched line.
type SubmissionOutcome struct {
	Code           string    `json:"codigo"`
	Name           string    `json:"nome"`
	Quantity       int       `json:"quantidade"`
	StockBefore    int       `json:"estoque_antes"`
	Success        bool      `json:"success"`
	ResultingStock *int      `json:"novo_estoque,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Actor          string    `json:"usuario"`
}

// SubmissionReport aggregates the outcomes of one orchestrator invocation.
type SubmissionReport struct {
	BatchID      string              `json:"batch_id"`
	Mode         SubmitMode          `json:"mode"`
	Actor        string              `json:"usuario"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at"`
	Outcomes     []SubmissionOutcome `json:"outcomes"`
	SuccessCount int                 `json:"success_count"`
	ErrorCount   int                 `json:"error_count"`
	Interrupted  bool                `json:"interrupted,omitempty"`
}

// Preview is the reconciliation of one upload awaiting confirmation.
type Preview struct {
	BatchID   string                `json:"batch_id"`
	FileName  string                `json:"file_name"`
	CreatedAt time.Time             `json:"created_at"`
	Orders    []OrderLine           `json:"orders"`
	Expanded  []ExpandedLine        `json:"expanded"`
	Result    Reconciliation        `json:"result"`
	Summary   ReconciliationSummary `json:"summary"`
}

// HistoryEntry is one persisted submission outcome.
type HistoryEntry struct {
	ID             int64      `json:"id" db:"id"`
	BatchID        string     `json:"batch_id" db:"batch_id"`
	Mode           SubmitMode `json:"mode" db:"mode"`
	Actor          string     `json:"usuario" db:"actor"`
	Code           string     `json:"codigo" db:"sku"`
	Quantity       int        `json:"quantidade" db:"quantity"`
	StockBefore    int        `json:"estoque_antes" db:"stock_before"`
	Success        bool       `json:"success" db:"success"`
	ResultingStock *int       `json:"novo_estoque,omitempty" db:"resulting_stock"`
	Error          string     `json:"error,omitempty" db:"error_message"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
