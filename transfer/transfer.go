// Package transfer copies project artifacts to a remote host.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/liweiyi88/syncto/project"
)

var ErrNotRetryable = errors.New("error not retryable")

// Target is the remote side of a transfer.
type Target struct {
	User string
	Host string
	Path string
	Port int
}

// String renders the target as user@host:path. IPv6 hosts are bracketed.
func (t Target) String() string {
	host := t.Host
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}

	return fmt.Sprintf("%s@%s:%s", t.User, host, t.Path)
}

type Transport interface {
	Transfer(ctx context.Context, artifact project.Artifact, target Target) error
}

// TransferError reports a failed transfer of a single artifact together with
// whatever the underlying tool wrote to its error stream.
type TransferError struct {
	Artifact string
	Stderr   string
	Err      error
}

func (e *TransferError) Error() string {
	msg := fmt.Sprintf("fail to copy %s", e.Artifact)

	if e.Err != nil {
		msg += fmt.Sprintf(", error: %v", e.Err)
	}

	if stderr := strings.TrimSpace(e.Stderr); stderr != "" && (e.Err == nil || !strings.Contains(e.Err.Error(), stderr)) {
		msg += ", stderr: " + stderr
	}

	return msg
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
