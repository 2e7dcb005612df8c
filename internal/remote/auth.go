package remote

import (
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// Authenticator provides credentials for OCI registry operations.
type Authenticator interface {
	// Authenticate returns credentials for the given registry host.
	Authenticate(registry string) (username, password string, err error)
}

// StaticAuthenticator returns the same credentials for every registry.
type StaticAuthenticator struct {
	Username string
	Password string
}

func (a StaticAuthenticator) Authenticate(string) (string, string, error) {
	return a.Username, a.Password, nil
}

// authOption resolves credentials for registry, falling back to the docker
// keychain (~/.docker/config.json, credential helpers) when auth is nil or
// yields no username.
func authOption(auth Authenticator, registry string) remote.Option {
	if auth != nil {
		username, password, err := auth.Authenticate(registry)
		if err == nil && username != "" {
			return remote.WithAuth(&authn.Basic{
				Username: username,
				Password: password,
			})
		}
	}
	return remote.WithAuthFromKeychain(authn.DefaultKeychain)
}
