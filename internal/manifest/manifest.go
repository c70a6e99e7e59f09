// Package manifest loads the TOML credential manifest and derives the
// vault search key for each credential.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	operrors "github.com/systmms/opcredsync/internal/errors"
	"github.com/systmms/opcredsync/internal/secure"
)

// Manifest is the parsed credential manifest. Issuers keep document order;
// the manifest is immutable after Load.
type Manifest struct {
	Issuers []Issuer
}

// Issuer groups the credentials issued by one service.
type Issuer struct {
	Name        string
	Credentials []Credential
}

// Credential names one secret and carries its new value in protected
// memory.
type Credential struct {
	Name  string
	Value *secure.Buffer
}

// rawManifest mirrors the TOML document:
//
//	[[issuers]]
//	issuer = "GitLab"
//	  [[issuers.credentials]]
//	  name  = "cli PAT"
//	  value = "XYZ"
type rawManifest struct {
	Issuers []rawIssuer `toml:"issuers"`
}

type rawIssuer struct {
	Issuer      string          `toml:"issuer"`
	Credentials []rawCredential `toml:"credentials"`
}

type rawCredential struct {
	Name  string  `toml:"name"`
	Value *string `toml:"value"`
}

// Load reads and parses the manifest at path. Structural problems (missing
// file, TOML syntax errors, empty issuer or credential names, absent
// values) are reported as manifest errors; duplicate issuer names are
// permitted and processed independently in document order.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, operrors.ConfigError{
				Field:      "path",
				Value:      path,
				Message:    "manifest file not found",
				Suggestion: "Check the manifest path passed as the first argument",
			}
		}
		return nil, operrors.UserError{
			Message:    "Failed to read manifest file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var raw rawManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, operrors.ConfigError{
			Field:      "path",
			Value:      path,
			Message:    "invalid TOML: " + err.Error(),
			Suggestion: "Check the manifest for syntax errors and wrong value types",
		}
	}

	m := &Manifest{Issuers: make([]Issuer, 0, len(raw.Issuers))}
	for i, iss := range raw.Issuers {
		if strings.TrimSpace(iss.Issuer) == "" {
			return nil, operrors.ConfigError{
				Field:      fmt.Sprintf("issuers[%d].issuer", i),
				Message:    "issuer name must not be empty",
				Suggestion: "Set issuer = \"<service name>\" for every issuer block",
			}
		}

		creds := make([]Credential, 0, len(iss.Credentials))
		for j, cred := range iss.Credentials {
			if strings.TrimSpace(cred.Name) == "" {
				return nil, operrors.ConfigError{
					Field:      fmt.Sprintf("issuers[%d].credentials[%d].name", i, j),
					Message:    "credential name must not be empty",
					Suggestion: "Set name = \"<credential name>\" for every credential block",
				}
			}
			if cred.Value == nil {
				return nil, operrors.ConfigError{
					Field:      fmt.Sprintf("issuers[%d].credentials[%d].value", i, j),
					Message:    "credential value is required",
					Suggestion: "Set value = \"<new secret>\" for every credential block",
				}
			}

			creds = append(creds, Credential{
				Name:  cred.Name,
				Value: secure.NewBufferFromString(*cred.Value),
			})
		}

		m.Issuers = append(m.Issuers, Issuer{
			Name:        iss.Issuer,
			Credentials: creds,
		})
	}

	return m, nil
}

// SearchKey derives the vault lookup string for a credential: the
// lowercased issuer name and lowercased credential name joined by a single
// space. No other normalization is applied.
func SearchKey(issuer, credential string) string {
	return strings.ToLower(issuer) + " " + strings.ToLower(credential)
}
