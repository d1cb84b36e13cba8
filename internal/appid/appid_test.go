package appid

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/appidentity"
)

func prepareIdentityForTest(t *testing.T) {
	t.Helper()

	// gofulmen caches identity per-process.
	appidentity.Reset()
	t.Cleanup(func() { appidentity.Reset() })
}

func TestGet_BuiltInIdentityOutsideRepo(t *testing.T) {
	prepareIdentityForTest(t)
	t.Setenv(appidentity.EnvIdentityPath, "")

	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWD) })

	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	identity, err := Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if identity.BinaryName != BinaryName {
		t.Fatalf("expected BinaryName %q, got %q", BinaryName, identity.BinaryName)
	}
	if !strings.HasSuffix(identity.EnvPrefix, "_") {
		t.Fatalf("expected env prefix to end with underscore, got %q", identity.EnvPrefix)
	}
	if identity.ConfigName == "" {
		t.Fatalf("expected ConfigName to be set")
	}
}

func TestGet_EnvVarRemainsAuthoritative(t *testing.T) {
	prepareIdentityForTest(t)

	missing := filepath.Join(t.TempDir(), "missing-app.yaml")
	t.Setenv(appidentity.EnvIdentityPath, missing)

	_, err := Get(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}

	var notFound *appidentity.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
}
