package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newSync(user, dest, path string) *Sync {
	sync := &Sync{User: user, Dest: dest, Path: path}
	sync.ApplyDefaults()

	return sync
}

func TestApplyDefaults(t *testing.T) {
	assert := assert.New(t)

	sync := newSync("alice", "example.com", "/srv/app")

	assert.Equal(22, sync.Port)
	assert.Equal("src", sync.Source)
	assert.Equal("Cargo.toml", sync.Manifest)
	assert.Equal(TransportScp, sync.Transport)
	assert.Equal(OnFailureAbort, sync.OnFailure)
	assert.Equal("scp", sync.ScpBinary)
	assert.Equal(1, sync.MaxAttempts)
	assert.Nil(sync.Validate())

	sync = &Sync{Port: 2222, Source: "lib", Manifest: "go.mod", Transport: TransportSftp, MaxAttempts: 3}
	sync.ApplyDefaults()

	assert.Equal(2222, sync.Port)
	assert.Equal("lib", sync.Source)
	assert.Equal("go.mod", sync.Manifest)
	assert.Equal(TransportSftp, sync.Transport)
	assert.Equal(3, sync.MaxAttempts)
}

func TestValidate(t *testing.T) {
	t.Run("it should report every missing required value", func(t *testing.T) {
		sync := newSync("", " ", "")
		err := sync.Validate()

		assert.True(t, errors.Is(err, ErrMissingUser))
		assert.True(t, errors.Is(err, ErrMissingDest))
		assert.True(t, errors.Is(err, ErrMissingPath))
	})

	t.Run("it should reject an out of range port", func(t *testing.T) {
		sync := newSync("alice", "example.com", "/srv/app")

		sync.Port = 70000
		assert.ErrorContains(t, sync.Validate(), "invalid port 70000")

		sync.Port = 0
		assert.ErrorContains(t, sync.Validate(), "invalid port 0")
	})

	t.Run("it should reject a host address that carries its own port", func(t *testing.T) {
		sync := newSync("alice", "example.com:2222", "/srv/app")
		assert.ErrorContains(t, sync.Validate(), "must not contain a port")

		sync.Dest = "::1"
		assert.Nil(t, sync.Validate())
	})

	t.Run("it should reject empty source, manifest and scp binary", func(t *testing.T) {
		sync := newSync("alice", "example.com", "/srv/app")
		sync.Source = ""
		sync.ScpBinary = " "
		err := sync.Validate()

		assert.ErrorContains(t, err, "source and manifest must not be empty")
		assert.ErrorContains(t, err, "scp binary must not be empty")
	})

	t.Run("it should require a ssh key for sftp", func(t *testing.T) {
		sync := newSync("alice", "example.com", "/srv/app")
		sync.Transport = TransportSftp

		assert.ErrorIs(t, sync.Validate(), ErrMissingSshKey)
	})

	t.Run("it should reject unknown transport and failure policy", func(t *testing.T) {
		sync := newSync("alice", "example.com", "/srv/app")
		sync.Transport = "rsync"
		sync.OnFailure = "retry"
		err := sync.Validate()

		assert.ErrorContains(t, err, `unsupported transport "rsync"`)
		assert.ErrorContains(t, err, `unsupported failure policy "retry"`)
	})

	t.Run("it should reject negative attempts and interval", func(t *testing.T) {
		sync := newSync("alice", "example.com", "/srv/app")
		sync.MaxAttempts = -1
		sync.Every = -time.Second
		err := sync.Validate()

		assert.ErrorContains(t, err, "invalid max attempts -1")
		assert.ErrorContains(t, err, "invalid interval -1s")
	})
}

func TestParseProfile(t *testing.T) {
	assert := assert.New(t)

	content := `user: deploy
dest: build.example.com
path: /srv/app
port: 2200
transport: sftp
sshkey: /home/deploy/.ssh/id_ed25519
every: 5m
`

	sync, err := ParseProfile([]byte(content))
	assert.Nil(err)
	assert.Equal("deploy", sync.User)
	assert.Equal("build.example.com", sync.Dest)
	assert.Equal("/srv/app", sync.Path)
	assert.Equal(2200, sync.Port)
	assert.Equal(TransportSftp, sync.Transport)
	assert.Equal(5*time.Minute, sync.Every)
	assert.Equal("", sync.Source)

	_, err = ParseProfile([]byte("user: [deploy"))
	assert.ErrorContains(err, "fail to parse sync profile")
}
