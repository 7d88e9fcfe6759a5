// Package probe runs a minimal SMTP dialogue (banner, EHLO, MAIL FROM,
// RCPT TO) against one mail exchanger and reports how the server answered
// the recipient. No message is ever sent.
package probe
