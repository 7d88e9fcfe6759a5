package detect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/mailprobe/internal/detect"
)

func embedded(t *testing.T) *detect.Classifier {
	t.Helper()
	p, err := detect.LoadPatterns()
	require.NoError(t, err)
	return detect.NewClassifier(p)
}

func TestClassifier_Provider(t *testing.T) {
	c := embedded(t)
	tests := []struct {
		name  string
		hosts []string
		want  string
	}{
		{name: "no hosts", hosts: nil, want: detect.ProviderNone},
		{name: "google", hosts: []string{"aspmx.l.google.com"}, want: "Google"},
		{name: "googlemail", hosts: []string{"alt1.gmr-smtp-in.l.googlemail.com"}, want: "Google"},
		{name: "microsoft", hosts: []string{"goodco-com.mail.protection.outlook.com"}, want: "Microsoft"},
		{name: "hotmail", hosts: []string{"mx1.hotmail.com"}, want: "Microsoft"},
		{name: "yahoo", hosts: []string{"mta5.am0.yahoodns.net"}, want: "Yahoo"},
		{name: "apple", hosts: []string{"mx01.mail.icloud.com"}, want: "Apple"},
		{name: "zoho", hosts: []string{"mx.zoho.com"}, want: "Zoho"},
		{name: "godaddy", hosts: []string{"mailstore1.secureserver.net"}, want: "GoDaddy"},
		{name: "uppercase", hosts: []string{"ASPMX.L.GOOGLE.COM."}, want: "Google"},
		{name: "custom", hosts: []string{"mx.badco.com"}, want: detect.ProviderOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Provider(tt.hosts))
		})
	}
}

func TestClassifier_RuleOrderWinsOverHostOrder(t *testing.T) {
	c := embedded(t)
	// Zoho host comes first, but the Google rule has priority.
	got := c.Provider([]string{"mx.zoho.com", "aspmx.l.google.com"})
	assert.Equal(t, "Google", got)
}

func TestClassifier_EmptyRules(t *testing.T) {
	c := detect.NewClassifier(detect.Patterns{})
	assert.Equal(t, detect.ProviderOther, c.Provider([]string{"aspmx.l.google.com"}))
	assert.Equal(t, detect.ProviderNone, c.Provider(nil))
}
