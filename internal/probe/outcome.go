package probe

// Stage is the protocol step that produced an Outcome.
type Stage string

// Protocol stages in dialogue order.
const (
	StageConnect  Stage = "connect"
	StageBanner   Stage = "banner"
	StageEHLO     Stage = "ehlo"
	StageMailFrom Stage = "mail_from"
	StageRcptTo   Stage = "rcpt_to"
)

// label is the stage name used in failure messages.
func (s Stage) label() string {
	switch s {
	case StageConnect:
		return "Connection"
	case StageBanner:
		return "Banner"
	case StageEHLO:
		return "EHLO"
	case StageMailFrom:
		return "MAIL FROM"
	case StageRcptTo:
		return "RCPT TO"
	default:
		return string(s)
	}
}

// Outcome is the result of one probe. Code is zero when no reply code was
// obtained (transport failure, timeout, protocol error).
type Outcome struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
	Stage   Stage  `json:"stage"`
}

// HasCode reports whether the server answered with a numeric reply.
func (o Outcome) HasCode() bool { return o.Code != 0 }
