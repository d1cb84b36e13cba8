// Package appid provides the application identity used for config paths,
// environment prefixes and version reporting.
package appid

import (
	"context"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"
)

const (
	Vendor     = "readmegen"
	BinaryName = "readmegen"
	EnvPrefix  = "READMEGEN_"
	ConfigName = "readmegen"
)

// Default is the built-in identity of the binary.
func Default() *appidentity.Identity {
	return &appidentity.Identity{
		Vendor:      Vendor,
		BinaryName:  BinaryName,
		EnvPrefix:   EnvPrefix,
		ConfigName:  ConfigName,
		Description: "Generates README drafts for public repositories",
	}
}

// Get returns the application identity. An identity file named by
// FULMEN_APP_IDENTITY_PATH is authoritative; otherwise the built-in identity
// is returned.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	if strings.TrimSpace(os.Getenv(appidentity.EnvIdentityPath)) != "" {
		return appidentity.Get(ctx)
	}
	return Default(), nil
}
