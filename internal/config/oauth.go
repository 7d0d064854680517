package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

const oauthEnvPrefix = envPrefix + "OAUTH_"

// OAuthClientConfig is a Google OAuth client file as downloaded from the cloud console.
// Desktop clients keep their credentials under "installed", web clients under "web".
type OAuthClientConfig struct {
	Installed *OAuthCredentials `json:"installed,omitempty" validate:"required_without=Web"`
	Web       *OAuthCredentials `json:"web,omitempty" validate:"required_without=Installed,excluded_with=Installed"`
}

// OAuthCredentials holds one client section. The id and secret can be supplied through
// RIDE_ROTA_OAUTH_CLIENT_ID and RIDE_ROTA_OAUTH_CLIENT_SECRET so they stay out of the file.
type OAuthCredentials struct {
	ClientID                string   `json:"client_id" env:"CLIENT_ID" validate:"required"`
	ProjectID               string   `json:"project_id" validate:"required"`
	AuthURI                 string   `json:"auth_uri" validate:"required,url"`
	TokenURI                string   `json:"token_uri" validate:"required,url"`
	AuthProviderX509CertURL string   `json:"auth_provider_x509_cert_url,omitempty" validate:"omitempty,url"`
	ClientSecret            string   `json:"client_secret" env:"CLIENT_SECRET" validate:"required"`
	RedirectURIs            []string `json:"redirect_uris" validate:"required,min=1,dive,uri"`
}

// Credentials returns whichever client section the file carries
func (c *OAuthClientConfig) Credentials() *OAuthCredentials {
	if c.Installed != nil {
		return c.Installed
	}
	return c.Web
}

// LoadOAuthClientWithEnv loads oauthClient.<env>.json (or oauthClient.json when env is empty)
func LoadOAuthClientWithEnv(env string) (*OAuthClientConfig, error) {
	oauthPath, err := findFile(envFileName("oauthClient", env, "json"))
	if err != nil {
		return nil, fmt.Errorf("failed to find oauth client file: %w", err)
	}

	return LoadOAuthClientFromPath(oauthPath)
}

// LoadOAuthClientFromPath reads the client file, applies environment overrides and validates it
func LoadOAuthClientFromPath(path string) (*OAuthClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth client file: %w", err)
	}

	var oauthCfg OAuthClientConfig
	if err := json.Unmarshal(data, &oauthCfg); err != nil {
		return nil, fmt.Errorf("failed to parse oauth client file: %w", err)
	}

	creds := oauthCfg.Credentials()
	if creds == nil {
		return nil, errors.New("oauth client file has neither an installed nor a web section")
	}
	if err := env.ParseWithOptions(creds, env.Options{Prefix: oauthEnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse oauth environment overrides: %w", err)
	}

	if err := ValidateOAuthClient(&oauthCfg); err != nil {
		return nil, err
	}

	return &oauthCfg, nil
}

// ValidateOAuthClient validates the OAuth client configuration
func ValidateOAuthClient(cfg *OAuthClientConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("oauth client validation failed: %w", err)
	}
	return nil
}
