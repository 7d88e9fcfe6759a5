package intel

import "strings"

type policy struct {
	present bool
	weak    bool
}

// spfPolicy inspects every v=spf1 record. One record ending in a permissive
// qualifier, or carrying no -all/~all at all, makes the policy weak.
func spfPolicy(txts []string) policy {
	var p policy
	for _, txt := range txts {
		rec := strings.ToLower(txt)
		if !strings.Contains(rec, "v=spf1") {
			continue
		}
		p.present = true
		if strings.Contains(rec, "+all") || strings.Contains(rec, "?all") ||
			(!strings.Contains(rec, "~all") && !strings.Contains(rec, "-all")) {
			p.weak = true
		}
	}
	return p
}

// dmarcPolicy inspects every v=DMARC1 record. Any p=none is weak.
func dmarcPolicy(txts []string) policy {
	var p policy
	for _, txt := range txts {
		rec := strings.ToLower(txt)
		if !strings.Contains(rec, "v=dmarc1") {
			continue
		}
		p.present = true
		if strings.Contains(rec, "p=none") {
			p.weak = true
		}
	}
	return p
}

func verdict(spf, dmarc policy) Spoofable {
	switch {
	case !spf.present || !dmarc.present:
		return SpoofableMissingRecords
	case spf.weak || dmarc.weak:
		return SpoofableWeakPolicy
	default:
		return SpoofableNo
	}
}
