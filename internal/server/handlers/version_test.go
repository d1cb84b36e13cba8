package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulmenhq/gofulmen/appidentity"
)

func TestVersionHandlerIncludesIdentityMetadata(t *testing.T) {
	handler := &VersionHandler{
		Identity:   &appidentity.Identity{BinaryName: "example-service", Description: "README generator"},
		Build:      BuildInfo{Version: "1.2.3", Commit: "abcd123", BuildDate: "2025-11-07T12:00:00Z"},
		Completion: CompletionInfo{Provider: "openai", Model: "gpt-3.5-turbo"},
	}

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp VersionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.App.Name != "example-service" {
		t.Fatalf("expected app name example-service, got %s", resp.App.Name)
	}
	if resp.App.Version != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %s", resp.App.Version)
	}
	if resp.App.Commit != "abcd123" {
		t.Fatalf("expected commit abcd123, got %s", resp.App.Commit)
	}
	if resp.Completion.Model != "gpt-3.5-turbo" {
		t.Fatalf("expected pinned model, got %s", resp.Completion.Model)
	}
	if resp.Dependencies.Gofulmen == "" || resp.Dependencies.Crucible == "" {
		t.Fatal("expected dependency versions to be populated")
	}
}

func TestVersionHandlerDefaults(t *testing.T) {
	rec := httptest.NewRecorder()
	(&VersionHandler{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var resp VersionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.App.Name != "readmegen" || resp.App.Version != "dev" {
		t.Fatalf("unexpected defaults %+v", resp.App)
	}
}
