package accounts

import (
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringServicePrefix is the prefix for all jtxboard keyring entries
const KeyringServicePrefix = "jtxboard"

// CredentialSource indicates where credentials were found
type CredentialSource string

const (
	SourceKeyring CredentialSource = "keyring"
	SourceEnv     CredentialSource = "env"
	SourceNone    CredentialSource = "none"
)

// Credentials represents resolved authentication credentials for an account
type Credentials struct {
	Username string
	Password string
	Source   CredentialSource
}

func serviceName(accountName string) string {
	return fmt.Sprintf("%s-%s", KeyringServicePrefix, accountName)
}

// SetCredentials stores an account password in the OS keyring
func SetCredentials(accountName, username, password string) error {
	if accountName == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if err := keyring.Set(serviceName(accountName), username, password); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

// GetCredentials retrieves an account password from the OS keyring
func GetCredentials(accountName, username string) (string, error) {
	if accountName == "" {
		return "", fmt.Errorf("account name cannot be empty")
	}
	if username == "" {
		return "", fmt.Errorf("username cannot be empty")
	}

	password, err := keyring.Get(serviceName(accountName), username)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", fmt.Errorf("no credentials found in keyring for account %q and user %q", accountName, username)
		}
		return "", fmt.Errorf("failed to retrieve credentials from keyring: %w", err)
	}
	return password, nil
}

// DeleteCredentials removes account credentials from the OS keyring
func DeleteCredentials(accountName, username string) error {
	if accountName == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if err := keyring.Delete(serviceName(accountName), username); err != nil {
		if err == keyring.ErrNotFound {
			return fmt.Errorf("no credentials found in keyring for account %q and user %q", accountName, username)
		}
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// KeyringAvailable checks if the keyring is accessible
func KeyringAvailable() bool {
	// A get on a non-existent entry distinguishes "keyring works" from
	// "no keyring backend at all".
	_, err := keyring.Get(KeyringServicePrefix+"-availability-check", "probe")
	return err == nil || err == keyring.ErrNotFound
}

// normalizeAccountName converts an account name to its environment variable
// form. Example: "dav-home" becomes "DAV_HOME".
func normalizeAccountName(accountName string) string {
	normalized := strings.ToUpper(accountName)
	return strings.ReplaceAll(normalized, "-", "_")
}

func envVarName(accountName, field string) string {
	return "JTXBOARD_" + normalizeAccountName(accountName) + "_" + strings.ToUpper(field)
}

// EnvUsername retrieves the username from JTXBOARD_{ACCOUNT}_USERNAME
func EnvUsername(accountName string) string {
	if accountName == "" {
		return ""
	}
	return os.Getenv(envVarName(accountName, "USERNAME"))
}

// EnvPassword retrieves the password from JTXBOARD_{ACCOUNT}_PASSWORD
func EnvPassword(accountName string) string {
	if accountName == "" {
		return ""
	}
	return os.Getenv(envVarName(accountName, "PASSWORD"))
}

// ResolveCredentials finds credentials for an account in priority order:
// keyring first, then environment variables.
func ResolveCredentials(accountName, username string) (*Credentials, error) {
	if accountName == "" {
		return nil, fmt.Errorf("account name is required for credential resolution")
	}

	creds := &Credentials{Username: username, Source: SourceNone}

	if username != "" && KeyringAvailable() {
		if password, err := GetCredentials(accountName, username); err == nil {
			creds.Password = password
			creds.Source = SourceKeyring
			return creds, nil
		}
	}

	if password := EnvPassword(accountName); password != "" {
		if creds.Username == "" {
			creds.Username = EnvUsername(accountName)
		}
		creds.Password = password
		creds.Source = SourceEnv
		return creds, nil
	}

	return creds, nil
}
