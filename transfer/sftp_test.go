package transfer

import (
	"context"
	"errors"
	"io"
	"os"
	"net"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/liweiyi88/syncto/project"
	"github.com/liweiyi88/syncto/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	host string
	port int
}

func (s server) target(path string) Target {
	return Target{User: "root", Host: s.host, Path: path, Port: s.port}
}

func startServer(t *testing.T) (server, string) {
	t.Helper()

	privateKey, err := testutils.GenerateRSAPrivateKey()
	require.NoError(t, err)

	sftpServer, err := testutils.StartSftpServer("127.0.0.1:0", privateKey)
	require.NoError(t, err)

	t.Cleanup(func() { sftpServer.Close() })

	host, port, err := net.SplitHostPort(sftpServer.Addr)
	require.NoError(t, err)

	portNumber, err := strconv.Atoi(port)
	require.NoError(t, err)

	return server{host: host, port: portNumber}, privateKey
}

func TestSftpTransfer(t *testing.T) {
	srv, privateKey := startServer(t)
	p := createProject(t)

	nested := filepath.Join(p.Root, "src", "bin")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "tool.rs"), []byte("fn main() {}\n"), 0644))

	artifacts := p.Artifacts("src", "Cargo.toml")

	t.Run("it should copy the source tree into an existing remote directory", func(t *testing.T) {
		remote := t.TempDir()
		target := srv.target(remote)

		sftp := NewSftp(&SftpConfig{Key: privateKey, Progress: io.Discard})

		for _, artifact := range artifacts {
			assert.Nil(t, sftp.Transfer(context.Background(), artifact, target))
		}

		content, err := os.ReadFile(filepath.Join(remote, "src", "main.rs"))
		assert.Nil(t, err)
		assert.Equal(t, "fn main() {}\n", string(content))

		_, err = os.Stat(filepath.Join(remote, "src", "bin", "tool.rs"))
		assert.Nil(t, err)

		content, err = os.ReadFile(filepath.Join(remote, "Cargo.toml"))
		assert.Nil(t, err)
		assert.Equal(t, "[package]\nname = \"app\"\n", string(content))
	})

	t.Run("it should create the remote path when it does not exist", func(t *testing.T) {
		remote := filepath.Join(t.TempDir(), "app")
		target := srv.target(remote)

		err := NewSftp(&SftpConfig{Key: privateKey, Progress: io.Discard}).Transfer(context.Background(), artifacts[0], target)
		assert.Nil(t, err)

		_, err = os.Stat(filepath.Join(remote, "main.rs"))
		assert.Nil(t, err)
	})

	t.Run("it should skip files recorded in the checksum state", func(t *testing.T) {
		remote := t.TempDir()
		target := srv.target(remote)
		stateFile := filepath.Join(t.TempDir(), "checksum.syncto")

		sftp := NewSftp(&SftpConfig{Key: privateKey, Checksum: true, ChecksumFile: stateFile, Progress: io.Discard})
		assert.Nil(t, sftp.Transfer(context.Background(), artifacts[1], target))

		remoteFile := filepath.Join(remote, "Cargo.toml")
		require.NoError(t, os.Remove(remoteFile))

		assert.Nil(t, sftp.Transfer(context.Background(), artifacts[1], target))

		_, err := os.Stat(remoteFile)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("it should reject a directory that is not copied recursively", func(t *testing.T) {
		target := srv.target(t.TempDir())
		artifact := project.Artifact{Name: "src", LocalPath: filepath.Join(p.Root, "src")}

		err := NewSftp(&SftpConfig{Key: privateKey, Progress: io.Discard}).Transfer(context.Background(), artifact, target)
		assert.ErrorIs(t, err, ErrNotRetryable)
	})

	t.Run("it should report a connection failure as transfer error", func(t *testing.T) {
		target := srv.target(t.TempDir())

		err := NewSftp(&SftpConfig{Key: "not a key", Progress: io.Discard}).Transfer(context.Background(), artifacts[1], target)

		var transferErr *TransferError
		assert.True(t, errors.As(err, &transferErr))
		assert.Equal(t, "Cargo.toml", transferErr.Artifact)
		assert.Contains(t, err.Error(), "fail to create ssh connection")
	})
}

func TestSftpRetryKeepsRemoteRoot(t *testing.T) {
	srv, privateKey := startServer(t)
	p := createProject(t)
	artifact := p.Artifacts("src", "Cargo.toml")[0]

	remote := filepath.Join(t.TempDir(), "app")
	target := srv.target(remote)

	sftp := NewSftp(&SftpConfig{Key: privateKey, Progress: io.Discard})
	state := &placement{done: make(map[string]bool)}

	assert.Nil(t, sftp.write(context.Background(), artifact, target, state))
	assert.Nil(t, sftp.write(context.Background(), artifact, target, state))

	assert.Equal(t, remote, state.remoteRoot)

	_, err := os.Stat(filepath.Join(remote, "main.rs"))
	assert.Nil(t, err)

	_, err = os.Stat(filepath.Join(remote, "src"))
	assert.True(t, os.IsNotExist(err))
}

func TestProgressWriter(t *testing.T) {
	assert.Equal(t, os.Stderr, NewSftp(&SftpConfig{}).progressWriter())
	assert.Equal(t, io.Discard, NewSftp(&SftpConfig{Progress: io.Discard}).progressWriter())
}
