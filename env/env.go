package env

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	AWSRegion          = "AWS_REGION"
	AWSAccessKeyID     = "AWS_ACCESS_KEY_ID"
	AWSSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	AWSSessionToken    = "AWS_SESSION_TOKEN"
	SlackWebhookURL    = "SYNCTO_SLACK_WEBHOOK"
)

type AWSCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
}

// Env reads sync-to settings from environment variables.
type Env struct {
	lookup func(key string) string
}

func New() *Env {
	return &Env{lookup: os.Getenv}
}

func (e *Env) get(key string) string {
	return strings.TrimSpace(e.lookup(key))
}

func (e *Env) require(keys ...string) error {
	var missing []string

	for _, key := range keys {
		if e.get(key) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}

// AWSCredentials returns the static aws credentials. The session token is optional.
func (e *Env) AWSCredentials() (AWSCredentials, error) {
	if err := e.require(AWSRegion, AWSAccessKeyID, AWSSecretAccessKey); err != nil {
		return AWSCredentials{}, errors.Join(errors.New("incomplete aws credentials"), err)
	}

	return AWSCredentials{
		AccessKeyID:     e.get(AWSAccessKeyID),
		SecretAccessKey: e.get(AWSSecretAccessKey),
		SessionToken:    e.get(AWSSessionToken),
		Region:          e.get(AWSRegion),
	}, nil
}

func (e *Env) SlackWebhook() string {
	return e.get(SlackWebhookURL)
}
