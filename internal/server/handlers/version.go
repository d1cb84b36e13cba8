package handlers

import (
	"net/http"
	"runtime"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/crucible"
)

// BuildInfo is injected from main.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// VersionResponse represents the version information response
type VersionResponse struct {
	App          AppInfo        `json:"app"`
	Completion   CompletionInfo `json:"completion"`
	Dependencies DepInfo        `json:"dependencies"`
	Runtime      RuntimeInfo    `json:"runtime"`
}

// AppInfo contains application version details
type AppInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
	Commit      string `json:"git_commit"`
	BuildDate   string `json:"build_date"`
	GoVersion   string `json:"go_version,omitempty"`
}

// CompletionInfo names the pinned completion backend.
type CompletionInfo struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// DepInfo contains dependency version information
type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

// RuntimeInfo contains runtime environment information
type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

// VersionHandler serves build and dependency metadata.
type VersionHandler struct {
	Identity   *appidentity.Identity
	Build      BuildInfo
	Completion CompletionInfo
}

func (h *VersionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	deps := crucible.GetVersion()

	name, description := "readmegen", ""
	if h.Identity != nil {
		if h.Identity.BinaryName != "" {
			name = h.Identity.BinaryName
		}
		description = h.Identity.Description
	}

	build := h.Build
	if build.Version == "" {
		build.Version = "dev"
	}

	writeJSON(w, http.StatusOK, VersionResponse{
		App: AppInfo{
			Name:        name,
			Description: description,
			Version:     build.Version,
			Commit:      build.Commit,
			BuildDate:   build.BuildDate,
			GoVersion:   runtime.Version(),
		},
		Completion: h.Completion,
		Dependencies: DepInfo{
			Gofulmen: deps.Gofulmen,
			Crucible: deps.Crucible,
		},
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	})
}
