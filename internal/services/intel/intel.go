// Package intel derives mail-domain intelligence from DNS: MX hosts, the
// hosting provider, and whether SPF and DMARC policies make the domain
// spoofable.
package intel

// Spoofable is the composite verdict derived from SPF and DMARC.
type Spoofable int

// Spoofable verdicts.
const (
	SpoofableUnknown Spoofable = iota
	SpoofableNo
	SpoofableMissingRecords
	SpoofableWeakPolicy
)

// String returns the verdict as written to result rows.
func (s Spoofable) String() string {
	switch s {
	case SpoofableNo:
		return "No"
	case SpoofableMissingRecords:
		return "Yes-Missing-Records"
	case SpoofableWeakPolicy:
		return "Yes-Weak-Policy"
	default:
		return "Unknown"
	}
}

// DomainIntel is everything learned about one domain. MX hosts are ordered by
// preference with the trailing dot removed.
type DomainIntel struct {
	Domain       string
	MX           []string
	Provider     string
	SPFPresent   bool
	SPFWeak      bool
	DMARCPresent bool
	DMARCWeak    bool
	Spoofable    Spoofable
}

// PrimaryMX returns the most preferred exchanger, or "" when there is none.
func (d DomainIntel) PrimaryMX() string {
	if len(d.MX) == 0 {
		return ""
	}
	return d.MX[0]
}
