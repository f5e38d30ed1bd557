package domain

import "strings"

// Status is the four-way stock classification shown on the dashboard.
type Status string

const (
	StatusCritical Status = "CRITICAL"
	StatusLow      Status = "LOW"
	StatusOK       Status = "OK"
	StatusExcess   Status = "EXCESS"
)

var statusLabels = map[Status]string{
	StatusCritical: "CRÍTICO",
	StatusLow:      "BAIXO",
	StatusOK:       "OK",
	StatusExcess:   "EXCESSO",
}

var statusAliases = map[string]Status{
	"critical": StatusCritical,
	"critico":  StatusCritical,
	"crítico":  StatusCritical,
	"low":      StatusLow,
	"baixo":    StatusLow,
	"ok":       StatusOK,
	"excess":   StatusExcess,
	"excesso":  StatusExcess,
}

// Classify applies the thresholds in priority order; the first match wins.
//
//	current <  min        -> CRITICAL
//	current <= min * 1.2  -> LOW
//	current >  max        -> EXCESS
//	otherwise             -> OK
//
// The 1.2 factor is evaluated as 5*current <= 6*min so that boundaries such
// as (12, 10) stay exact.
func Classify(current, min, max int) Status {
	switch {
	case current < min:
		return StatusCritical
	case 5*int64(current) <= 6*int64(min):
		return StatusLow
	case current > max:
		return StatusExcess
	default:
		return StatusOK
	}
}

// Label returns the Portuguese display label for a status.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// ParseStatus accepts codes or labels, case-insensitively.
func ParseStatus(value string) (Status, bool) {
	s, ok := statusAliases[strings.ToLower(strings.TrimSpace(value))]
	return s, ok
}

// RiskBucket classifies the projected stock after a drawdown.
type RiskBucket string

const (
	RiskNegative RiskBucket = "negative"
	RiskZero     RiskBucket = "zero"
	RiskOK       RiskBucket = "ok"
)

// BucketFor maps a projected stock value to its risk bucket.
func BucketFor(stockAfter int) RiskBucket {
	switch {
	case stockAfter < 0:
		return RiskNegative
	case stockAfter == 0:
		return RiskZero
	default:
		return RiskOK
	}
}
