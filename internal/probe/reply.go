package probe

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

// maxReplyLines bounds a multi-line reply so a hostile server cannot keep
// the probe reading forever inside one deadline window.
const maxReplyLines = 64

var (
	errMalformed = errors.New("malformed reply")
	// errTruncated means the peer hung up partway through a reply.
	errTruncated = errors.New("truncated reply")
)

// reply is one complete, possibly multi-line, server response.
type reply struct {
	code  int
	lines []string
}

func (r reply) text() string { return strings.Join(r.lines, " ") }

// readReply reads lines until one without a "-" after the code. Every line
// must start with a three digit code. arm, when set, runs before each line
// so every line gets its own deadline.
func readReply(br *bufio.Reader, arm func() error) (reply, error) {
	var r reply
	for range maxReplyLines {
		if arm != nil {
			if err := arm(); err != nil {
				return reply{}, err
			}
		}
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && (line != "" || len(r.lines) > 0 || r.code != 0) {
				return reply{}, errTruncated
			}
			return reply{}, err
		}
		line = strings.TrimRight(line, "\r\n")
		if len(line) < 3 {
			return reply{}, errMalformed
		}
		code, err := strconv.Atoi(line[:3])
		if err != nil || code < 100 || code > 599 {
			return reply{}, errMalformed
		}
		if len(line) > 3 && line[3] != '-' && line[3] != ' ' {
			return reply{}, errMalformed
		}

		r.code = code
		if len(line) > 4 {
			r.lines = append(r.lines, line[4:])
		}
		if len(line) > 3 && line[3] == '-' {
			continue
		}
		return r, nil
	}
	return reply{}, errMalformed
}
