package doh

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbckr/mailprobe/internal/apperr"
	"github.com/tbckr/mailprobe/internal/httpclient"
	"github.com/tbckr/mailprobe/internal/resolver"
)

const testURL = "https://doh.example/dns-query"

// answer decodes the query carried in the request and lets fill build the reply.
func answer(t *testing.T, fill func(q dns.Question, m *dns.Msg)) httpmock.Responder {
	t.Helper()
	return func(r *http.Request) (*http.Response, error) {
		raw, err := base64.RawURLEncoding.DecodeString(r.URL.Query().Get("dns"))
		require.NoError(t, err)
		query := new(dns.Msg)
		require.NoError(t, query.Unpack(raw))
		assert.Equal(t, "application/dns-message", r.Header.Get("Accept"))

		m := new(dns.Msg)
		m.SetReply(query)
		fill(query.Question[0], m)
		wire, err := m.Pack()
		require.NoError(t, err)
		return httpmock.NewBytesResponse(http.StatusOK, wire), nil
	}
}

func newClient(t *testing.T, responder httpmock.Responder) *Client {
	t.Helper()
	hc, err := httpclient.New(httpclient.Options{})
	require.NoError(t, err)
	httpmock.ActivateNonDefault(hc.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder(http.MethodGet, testURL, responder)
	return New(hc, testURL)
}

func TestLookupMX(t *testing.T) {
	c := newClient(t, answer(t, func(q dns.Question, m *dns.Msg) {
		require.Equal(t, dns.TypeMX, q.Qtype)
		m.Answer = append(m.Answer,
			&dns.MX{Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeMX, Class: dns.ClassINET, Ttl: 60}, Preference: 5, Mx: "aspmx.l.google.com."},
			&dns.MX{Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeMX, Class: dns.ClassINET, Ttl: 60}, Preference: 1, Mx: "alt1.aspmx.l.google.com."},
		)
	}))

	mxs, err := c.LookupMX(context.Background(), "goodco.com")
	require.NoError(t, err)
	require.Len(t, mxs, 2)
	assert.Equal(t, "alt1.aspmx.l.google.com.", mxs[0].Host)
}

func TestLookupTXT(t *testing.T) {
	c := newClient(t, answer(t, func(q dns.Question, m *dns.Msg) {
		m.Answer = append(m.Answer, &dns.TXT{
			Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 60},
			Txt: []string{"v=DMARC1; p=reject"},
		})
	}))

	txts, err := c.LookupTXT(context.Background(), "_dmarc.goodco.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"v=DMARC1; p=reject"}, txts)
}

func TestLookupTXT_NXDOMAIN(t *testing.T) {
	c := newClient(t, answer(t, func(_ dns.Question, m *dns.Msg) {
		m.Rcode = dns.RcodeNameError
	}))

	_, err := c.LookupTXT(context.Background(), "_dmarc.badco.com")
	require.Error(t, err)
	assert.True(t, resolver.IsNotFound(err))
}

func TestLookup_HTTPError(t *testing.T) {
	c := newClient(t, httpmock.NewStringResponder(http.StatusBadGateway, "upstream down"))

	_, err := c.LookupMX(context.Background(), "example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrRequestFailed)
	assert.False(t, resolver.IsNotFound(err))
}

func TestLookup_MalformedBody(t *testing.T) {
	c := newClient(t, httpmock.NewStringResponder(http.StatusOK, "garbage"))

	_, err := c.LookupTXT(context.Background(), "example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrRequestFailed)
}

func TestBuildQuery(t *testing.T) {
	wire, err := buildQuery("example.com", dns.TypeTXT)
	require.NoError(t, err)

	m := new(dns.Msg)
	require.NoError(t, m.Unpack(wire))
	assert.Equal(t, uint16(0), m.Id)
	assert.True(t, m.RecursionDesired)
	require.Len(t, m.Question, 1)
	assert.Equal(t, "example.com.", m.Question[0].Name)
	assert.Equal(t, dns.TypeTXT, m.Question[0].Qtype)
}

func TestNew_DefaultURL(t *testing.T) {
	assert.Equal(t, DefaultURL, New(nil, "").url)
}
