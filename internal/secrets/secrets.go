package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrMissingCredentials = errors.New("alpaca credentials missing")

type Credentials struct {
	APIKey    string `yaml:"alpaca_api_key" json:"alpaca_api_key"`
	APISecret string `yaml:"alpaca_secret_key" json:"alpaca_secret_key"`
}

func (c Credentials) validate() error {
	if c.APIKey == "" || c.APISecret == "" {
		return ErrMissingCredentials
	}
	return nil
}

type Provider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// EnvProvider reads the standard Alpaca environment variables.
type EnvProvider struct{}

func (EnvProvider) Credentials(ctx context.Context) (Credentials, error) {
	creds := Credentials{
		APIKey:    os.Getenv("APCA_API_KEY_ID"),
		APISecret: os.Getenv("APCA_API_SECRET_KEY"),
	}
	if err := creds.validate(); err != nil {
		return Credentials{}, fmt.Errorf("%w: set APCA_API_KEY_ID and APCA_API_SECRET_KEY", err)
	}
	return creds, nil
}

// FileProvider reads a YAML (or JSON) secret document with alpaca_api_key and
// alpaca_secret_key entries.
type FileProvider struct {
	Path string
}

func (p FileProvider) Credentials(ctx context.Context) (Credentials, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read secrets file: %w", err)
	}
	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse secrets file %s: %w", p.Path, err)
	}
	if err := creds.validate(); err != nil {
		return Credentials{}, fmt.Errorf("%w in %s", err, p.Path)
	}
	return creds, nil
}

// Static returns fixed credentials, e.g. ones already resolved by config.
type Static Credentials

func (s Static) Credentials(ctx context.Context) (Credentials, error) {
	creds := Credentials(s)
	if err := creds.validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}
