// Package output renders run summaries as text, JSON, or tables and
// sanitises server-controlled text before it reaches a terminal or file.
package output
