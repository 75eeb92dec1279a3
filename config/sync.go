package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

const (
	DefaultPort     = 22
	DefaultSource   = "src"
	DefaultManifest = "Cargo.toml"
	DefaultScp      = "scp"
)

const (
	TransportScp  = "scp"
	TransportSftp = "sftp"
)

// Failure policies applied when a transfer fails.
const (
	OnFailureAbort    = "abort"
	OnFailureContinue = "continue"
	OnFailureIgnore   = "ignore"
)

var (
	ErrMissingUser   = errors.New("remote user is required")
	ErrMissingDest   = errors.New("remote host address is required")
	ErrMissingPath   = errors.New("remote path is required")
	ErrMissingSshKey = errors.New("ssh key is required for the sftp transport")
)

type Sync struct {
	User         string        `yaml:"user"`
	Dest         string        `yaml:"dest"`
	Path         string        `yaml:"path"`
	Port         int           `yaml:"port"`
	Source       string        `yaml:"source"`
	Manifest     string        `yaml:"manifest"`
	Transport    string        `yaml:"transport"`
	OnFailure    string        `yaml:"onfailure"`
	ScpBinary    string        `yaml:"scpbinary"`
	SshKey       string        `yaml:"sshkey"`
	KnownHosts   string        `yaml:"knownhosts"`
	MaxAttempts  int           `yaml:"maxattempts"`
	Checksum     bool          `yaml:"checksum"`
	ChecksumFile string        `yaml:"checksumfile"`
	Every        time.Duration `yaml:"every"`
	SlackWebhook string        `yaml:"slackwebhook"`
}

// ApplyDefaults fills every optional field that is still at its zero value.
// It runs before command line flags are layered on top, so an explicit
// flag value such as --port 0 reaches Validate unchanged.
func (sync *Sync) ApplyDefaults() {
	if sync.Port == 0 {
		sync.Port = DefaultPort
	}

	if strings.TrimSpace(sync.Source) == "" {
		sync.Source = DefaultSource
	}

	if strings.TrimSpace(sync.Manifest) == "" {
		sync.Manifest = DefaultManifest
	}

	if sync.Transport == "" {
		sync.Transport = TransportScp
	}

	if sync.OnFailure == "" {
		sync.OnFailure = OnFailureAbort
	}

	if sync.ScpBinary == "" {
		sync.ScpBinary = DefaultScp
	}

	if sync.MaxAttempts == 0 {
		sync.MaxAttempts = 1
	}
}

func (sync *Sync) Validate() error {
	var errs error

	if strings.TrimSpace(sync.User) == "" {
		errs = errors.Join(errs, ErrMissingUser)
	}

	if strings.TrimSpace(sync.Dest) == "" {
		errs = errors.Join(errs, ErrMissingDest)
	}

	if strings.TrimSpace(sync.Path) == "" {
		errs = errors.Join(errs, ErrMissingPath)
	}

	if _, _, err := net.SplitHostPort(sync.Dest); err == nil {
		errs = errors.Join(errs, fmt.Errorf("remote host address %q must not contain a port, use --port", sync.Dest))
	}

	if sync.Port < 1 || sync.Port > 65535 {
		errs = errors.Join(errs, fmt.Errorf("invalid port %d, it must be between 1 and 65535", sync.Port))
	}

	if strings.TrimSpace(sync.Source) == "" || strings.TrimSpace(sync.Manifest) == "" {
		errs = errors.Join(errs, errors.New("source and manifest must not be empty"))
	}

	switch sync.Transport {
	case TransportScp:
		if strings.TrimSpace(sync.ScpBinary) == "" {
			errs = errors.Join(errs, errors.New("scp binary must not be empty"))
		}
	case TransportSftp:
		if strings.TrimSpace(sync.SshKey) == "" {
			errs = errors.Join(errs, ErrMissingSshKey)
		}
	default:
		errs = errors.Join(errs, fmt.Errorf("unsupported transport %q, use %s or %s", sync.Transport, TransportScp, TransportSftp))
	}

	switch sync.OnFailure {
	case OnFailureAbort, OnFailureContinue, OnFailureIgnore:
	default:
		errs = errors.Join(errs, fmt.Errorf("unsupported failure policy %q, use %s, %s or %s", sync.OnFailure, OnFailureAbort, OnFailureContinue, OnFailureIgnore))
	}

	if sync.MaxAttempts < 0 {
		errs = errors.Join(errs, fmt.Errorf("invalid max attempts %d", sync.MaxAttempts))
	}

	if sync.Every < 0 {
		errs = errors.Join(errs, fmt.Errorf("invalid interval %s", sync.Every))
	}

	return errs
}
