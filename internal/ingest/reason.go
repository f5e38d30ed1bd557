package ingest

import (
	"errors"
	"fmt"
	"strings"
)

type ReasonCode string

const (
	ReasonUnsupportedFormat ReasonCode = "unsupported_format"
	ReasonEncoding          ReasonCode = "encoding"
	ReasonMissingColumns    ReasonCode = "missing_columns"
	ReasonEmpty             ReasonCode = "empty"
	ReasonParse             ReasonCode = "parse"
	ReasonTooLarge          ReasonCode = "too_large"
)

// Reason is the single diagnostic returned when an upload cannot be turned
// into order lines. Message is meant to be shown to the operator as is.
type Reason struct {
	Code      ReasonCode `json:"code"`
	Message   string     `json:"message"`
	Found     []string   `json:"found_columns,omitempty"`
	Encodings []string   `json:"attempted_encodings,omitempty"`
}

func (r *Reason) Error() string {
	return r.Message
}

// AsReason unwraps err into a *Reason.
func AsReason(err error) (*Reason, bool) {
	var r *Reason
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

func unsupported(ext string) *Reason {
	if ext == "" {
		ext = "(none)"
	}
	return &Reason{
		Code:    ReasonUnsupportedFormat,
		Message: fmt.Sprintf("unsupported file extension %s; upload a .csv, .xlsx or .xls file", ext),
	}
}

func encodingExhausted(attempted []string) *Reason {
	return &Reason{
		Code: ReasonEncoding,
		Message: fmt.Sprintf("could not read the CSV with any of the encodings %s; re-save the file as CSV UTF-8 and try again",
			strings.Join(attempted, ", ")),
		Encodings: attempted,
	}
}

func missingColumns(missing, found []string) *Reason {
	shown := strings.Join(found, ", ")
	if shown == "" {
		shown = "(none)"
	}
	return &Reason{
		Code:    ReasonMissingColumns,
		Message: fmt.Sprintf("required columns %s not found; columns in file: %s", strings.Join(missing, ", "), shown),
		Found:   found,
	}
}

func parseFailure(format string, err error) *Reason {
	return &Reason{
		Code:    ReasonParse,
		Message: fmt.Sprintf("could not read the %s file: %v", format, err),
	}
}

func empty(msg string) *Reason {
	return &Reason{Code: ReasonEmpty, Message: msg}
}
