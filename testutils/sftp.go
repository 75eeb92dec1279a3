package testutils

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SftpServer is an in-process SSH server exposing the local file system over the sftp subsystem.
type SftpServer struct {
	Addr     string
	listener net.Listener
	wg       sync.WaitGroup
	mu       sync.Mutex
	logins   int
}

func StartSftpServer(address string, privateKey string) (*SftpServer, error) {
	sshConfig := &ssh.ServerConfig{
		PublicKeyCallback: func(c ssh.ConnMetadata, pubKey ssh.PublicKey) (*ssh.Permissions, error) {
			return &ssh.Permissions{
				// Record the public key used for authentication.
				Extensions: map[string]string{
					"pubkey-fp": ssh.FingerprintSHA256(pubKey),
				},
			}, nil
		},
	}

	private, err := ssh.ParsePrivateKey([]byte(privateKey))
	if err != nil {
		return nil, err
	}

	sshConfig.AddHostKey(private)

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}

	server := &SftpServer{
		Addr:     listener.Addr().String(),
		listener: listener,
	}

	server.wg.Add(1)
	go func() {
		defer server.wg.Done()
		server.serve(sshConfig)
	}()

	return server, nil
}

// Logins returns the number of ssh connections that completed the handshake.
func (s *SftpServer) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

func (s *SftpServer) Close() error {
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

func (s *SftpServer) serve(sshConfig *ssh.ServerConfig) {
	for {
		nConn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				slog.Error("fail to accept connection", slog.Any("error", err))
			}
			return
		}

		go s.handleConn(nConn, sshConfig)
	}
}

func (s *SftpServer) handleConn(nConn net.Conn, sshConfig *ssh.ServerConfig) {
	conn, chans, reqs, err := ssh.NewServerConn(nConn, sshConfig)
	if err != nil {
		slog.Debug("ssh handshake failed", slog.Any("error", err))
		return
	}

	s.mu.Lock()
	s.logins++
	s.mu.Unlock()

	slog.Debug("SSH logged in", slog.Any("key", conn.Permissions.Extensions["pubkey-fp"]))

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			slog.Error("fail to accept ssh channel", slog.Any("error", err))
			return
		}

		go func() {
			defer func() {
				if err := channel.Close(); err != nil && !errors.Is(err, io.EOF) {
					slog.Debug("fail to close ssh channel", slog.Any("error", err))
				}
			}()

			HandleSftpRequests(requests, channel)
		}()
	}
}

func HandleSftpRequests(requests <-chan *ssh.Request, channel ssh.Channel) {
	for req := range requests {
		if req.Type == "subsystem" && len(req.Payload) > 4 && string(req.Payload[4:]) == "sftp" {
			req.Reply(true, nil)

			server, err := sftp.NewServer(channel)
			if err != nil {
				slog.Error("fail to create sftp server", slog.Any("error", err))
				return
			}

			if err := server.Serve(); err != nil && err != io.EOF {
				slog.Debug("SFTP server exited with error", slog.Any("error", err))
			}

			return
		}

		req.Reply(false, nil)
	}
}
