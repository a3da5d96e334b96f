package config

import (
	"fmt"
	"strings"

	polarisErrors "github.com/harunnryd/polaris/internal/errors"
)

// Credential is a named secret that must be present and ASCII-only before any
// outbound call is attempted.
type Credential struct {
	Name  string
	Value string
}

// Credentials lists the secrets a chat turn depends on, in validation order.
func (c *Config) Credentials() []Credential {
	return []Credential{
		{Name: c.LLMKeyEnv(), Value: c.LLM.APIKey},
		{Name: EnvCMSAPIKey, Value: c.CMS.APIKey},
		{Name: EnvCMSManagementToken, Value: c.CMS.ManagementToken},
		{Name: EnvCMSRegion, Value: c.CMS.Region},
	}
}

// ValidateCredentials returns a configuration error naming the first credential
// that is empty or contains a non-ASCII character.
func ValidateCredentials(creds []Credential) error {
	for _, cred := range creds {
		if err := validateCredential(cred); err != nil {
			return err
		}
	}
	return nil
}

func validateCredential(cred Credential) error {
	value := strings.TrimSpace(cred.Value)
	if value == "" {
		return polarisErrors.Configuration(fmt.Sprintf("Missing %s.", cred.Name))
	}

	for i, r := range value {
		if r > 127 {
			return polarisErrors.Configuration(fmt.Sprintf("%s contains a non-ASCII character at index %d (code %d).", cred.Name, i, r))
		}
	}
	return nil
}
