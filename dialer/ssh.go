package dialer

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const dialTimeout = 30 * time.Second

type Ssh struct {
	host       string
	port       int
	key        string
	user       string
	knownHosts string
}

func NewSsh(host string, port int, key, user, knownHosts string) *Ssh {
	return &Ssh{
		host:       host,
		port:       port,
		key:        key,
		user:       user,
		knownHosts: knownHosts,
	}
}

// ensureHaveSSHPort joins addr with port. A positive port replaces any port in addr,
// otherwise the port in addr is kept and 22 is the fallback.
func ensureHaveSSHPort(addr string, port int) string {
	host, addrPort, err := net.SplitHostPort(addr)
	if err != nil {
		host, addrPort = strings.Trim(addr, "[]"), ""
	}

	if port > 0 {
		return net.JoinHostPort(host, strconv.Itoa(port))
	}

	if addrPort != "" {
		return addr
	}

	return net.JoinHostPort(host, "22")
}

// resolveKey accepts a private key file path, base64 encoded key content or the raw key content.
func resolveKey(key string) ([]byte, error) {
	if info, err := os.Stat(key); err == nil && !info.IsDir() {
		content, err := os.ReadFile(key)
		if err != nil {
			return nil, fmt.Errorf("fail to read ssh key file %s, error: %v", key, err)
		}

		return content, nil
	}

	if decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(key)); err == nil {
		return decoded, nil
	}

	return []byte(key), nil
}

func (s *Ssh) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if strings.TrimSpace(s.knownHosts) == "" {
		return ssh.InsecureIgnoreHostKey(), nil // #nosec G106 -- no known_hosts file configured
	}

	callback, err := knownhosts.New(s.knownHosts)
	if err != nil {
		return nil, fmt.Errorf("fail to load known_hosts %s, error: %v", s.knownHosts, err)
	}

	return callback, nil
}

func (s *Ssh) ClientConfig() (*ssh.ClientConfig, error) {
	key, err := resolveKey(s.key)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ssh signer :%w", err)
	}

	callback, err := s.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User:            s.user,
		HostKeyCallback: callback,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		Timeout: dialTimeout,
	}, nil
}

func (s *Ssh) Address() string {
	return ensureHaveSSHPort(s.host, s.port)
}

func (s *Ssh) CreateSshClient() (*ssh.Client, error) {
	conf, err := s.ClientConfig()
	if err != nil {
		return nil, err
	}

	client, err := ssh.Dial("tcp", s.Address(), conf)
	if err != nil {
		var keyErr *knownhosts.KeyError
		if errors.As(err, &keyErr) {
			return nil, fmt.Errorf("host key verification failed for %s, error: %w", s.host, err)
		}

		return nil, err
	}

	return client, nil
}
