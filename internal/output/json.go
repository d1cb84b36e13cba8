package output

import (
	"encoding/json"

	"github.com/readmegen/readmegen/internal/ailink"
	"github.com/readmegen/readmegen/internal/readme"
	"github.com/readmegen/readmegen/internal/repoinfo"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

type resultDocument struct {
	RunID      string             `json:"run_id"`
	RepoURL    string             `json:"repo_url"`
	Repository *repoinfo.Info     `json:"repository"`
	Readme     string             `json:"readme"`
	Completion *ailink.Completion `json:"completion,omitempty"`
	States     []readme.State     `json:"states"`
	DurationMS int64              `json:"duration_ms"`
}

type infoDocument struct {
	RepoURL    string         `json:"repo_url"`
	Repository *repoinfo.Info `json:"repository"`
}

// FormatResult renders the run, including usage, as JSON.
func (f *JSONFormatter) FormatResult(result *readme.Result) (string, error) {
	if result == nil {
		return "", nil
	}
	return f.marshal(resultDocument{
		RunID:      result.RunID,
		RepoURL:    result.RepoURL,
		Repository: result.Repository,
		Readme:     result.Readme,
		Completion: result.Completion,
		States:     result.States,
		DurationMS: result.Duration.Milliseconds(),
	})
}

// FormatInfo renders repository metadata as JSON.
func (f *JSONFormatter) FormatInfo(repoURL string, info *repoinfo.Info) (string, error) {
	if info == nil {
		return "", nil
	}
	return f.marshal(infoDocument{RepoURL: repoURL, Repository: info})
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data) + "\n", nil
}
