package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary ytsum shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// PipelineRequirements lists the binaries a run needs for the chosen
// acquisition and transcription backends.
func PipelineRequirements(acquisitionBackend, transcriptionBackend string) []Requirement {
	reqs := []Requirement{
		{Name: "FFmpeg", Command: "ffmpeg", Description: "Transcodes downloads and splits long audio"},
		{Name: "FFprobe", Command: "ffprobe", Description: "Measures audio duration for chunking"},
	}
	if strings.EqualFold(acquisitionBackend, "ytdlp") {
		reqs = append(reqs, Requirement{Name: "yt-dlp", Command: "yt-dlp", Description: "Downloads audio from the video URL"})
	}
	reqs = append(reqs, Requirement{
		Name:        "uvx",
		Command:     "uvx",
		Description: "Runs openai-whisper for local transcription",
		Optional:    !strings.EqualFold(transcriptionBackend, "local"),
	})
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of required dependencies that are unavailable.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
