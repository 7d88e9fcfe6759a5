package verify

import (
	"encoding/json"
	"fmt"
)

// StatusKind enumerates the terminal validation states.
type StatusKind int

// Status kinds. Exactly one applies to every result.
const (
	InvalidSyntax StatusKind = iota
	InvalidDomainNoMX
	ValidSMTPVerified
	InvalidRecipientRejected
	SMTPWarning
	SMTPFailed
)

var kindNames = map[StatusKind]string{
	InvalidSyntax:            "InvalidSyntax",
	InvalidDomainNoMX:        "InvalidDomainNoMX",
	ValidSMTPVerified:        "ValidSMTPVerified",
	InvalidRecipientRejected: "InvalidRecipientRejected",
	SMTPWarning:              "SMTPWarning",
	SMTPFailed:               "SMTPFailed",
}

// Kinds lists every status kind in display order.
func Kinds() []StatusKind {
	return []StatusKind{InvalidSyntax, InvalidDomainNoMX, ValidSMTPVerified, InvalidRecipientRejected, SMTPWarning, SMTPFailed}
}

func (k StatusKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("StatusKind(%d)", int(k))
}

// Status is a tagged variant: Code is set only for SMTPWarning, Reason only
// for SMTPFailed.
type Status struct {
	Kind   StatusKind
	Code   int
	Reason string
}

// String renders the status as written to result rows, e.g. "SMTPWarning(452)".
func (s Status) String() string {
	if s.Kind == SMTPWarning {
		return fmt.Sprintf("SMTPWarning(%d)", s.Code)
	}
	return s.Kind.String()
}

// MarshalJSON encodes the rendered form.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// statusFor maps an RCPT TO reply code to a status.
func statusFor(code int) Status {
	switch code {
	case 250:
		return Status{Kind: ValidSMTPVerified}
	case 550, 551, 554:
		return Status{Kind: InvalidRecipientRejected}
	default:
		return Status{Kind: SMTPWarning, Code: code}
	}
}
