package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2/google"

	"github.com/tranqh91/nimbus/pkg/provider"
)

// CallerIdentity holds the resolved GCP identity from Application Default Credentials.
type CallerIdentity struct {
	Email     string // Service account address or user email
	ProjectID string // GCP project associated with the credentials
	TokenType string // ADC credential type, e.g. "service_account" or "authorized_user"
}

// GetCallerIdentity verifies GCP Application Default Credentials and returns
// the resolved identity.
func GetCallerIdentity(ctx context.Context, project string) (*CallerIdentity, error) {
	creds, err := google.FindDefaultCredentials(ctx, scopeCloudPlatform)
	if err != nil {
		return nil, fmt.Errorf(
			"no application default credentials found (run 'gcloud auth application-default login'): %w",
			err,
		)
	}

	// Obtain a token to confirm the credentials are actually valid and not expired.
	token, err := creds.TokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf(
			"%w: failed to refresh GCP credentials (run 'gcloud auth application-default login'): %v",
			provider.ErrAuthFailed, err,
		)
	}
	if !token.Valid() {
		return nil, fmt.Errorf(
			"%w: GCP credentials are expired, run 'gcloud auth application-default login'",
			provider.ErrAuthFailed,
		)
	}

	identity := &CallerIdentity{ProjectID: project}
	if creds.ProjectID != "" {
		identity.ProjectID = creds.ProjectID
	}

	// The ADC file carries the credential type, and for service accounts
	// the email too.
	if data, readErr := os.ReadFile(adcPath()); readErr == nil {
		var adc struct {
			Type        string `json:"type"`
			ClientEmail string `json:"client_email"`
		}
		if json.Unmarshal(data, &adc) == nil {
			identity.TokenType = adc.Type
			identity.Email = adc.ClientEmail
		}
	}

	// User and external-account credentials keep no email locally; ask the
	// userinfo endpoint instead.
	if identity.Email == "" {
		if email, err := fetchUserEmail(ctx, token.AccessToken); err == nil {
			identity.Email = email
		}
	}

	return identity, nil
}

// adcPath returns the path to the active ADC credentials file.
// Respects the GOOGLE_APPLICATION_CREDENTIALS environment variable.
func adcPath() string {
	if env := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gcloud", "application_default_credentials.json")
}

// fetchUserEmail retrieves the account email for an access token from the
// Google OAuth2 userinfo endpoint.
func fetchUserEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet,
		"https://www.googleapis.com/oauth2/v1/userinfo",
		nil,
	)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	httpClient := &http.Client{Timeout: 5 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var info struct {
		Email            string `json:"email"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", err
	}
	if info.Error != "" {
		return "", fmt.Errorf("%s: %s", info.Error, info.ErrorDescription)
	}

	return info.Email, nil
}
