package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"mediadup/internal/config"
	"mediadup/internal/media"
)

// Requirement defines an external tool mediadup shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a tool.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements builds the tool list for the given config. A tool is only
// required when the extension filter admits files that need it; files
// still scan without one, but degrade to digest-only participation.
func Requirements(cfg *config.Config) []Requirement {
	videoConfigured := false
	rawConfigured := false
	for _, ext := range cfg.Scan.IncludeExt {
		probe := "x" + strings.ToLower(ext)
		if media.Classify(probe) == media.KindVideo {
			videoConfigured = true
		}
		if media.IsRaw(probe) {
			rawConfigured = true
		}
	}

	return []Requirement{
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for video container inspection",
			Optional:    !videoConfigured,
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for video frame and audio extraction",
			Optional:    !videoConfigured,
		},
		{
			Name:        "ExifTool",
			Command:     "exiftool",
			Description: "Extracts embedded previews from camera RAW files",
			Optional:    !rawConfigured,
		},
	}
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
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired filters statuses down to unavailable non-optional tools.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
