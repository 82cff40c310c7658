// Package cli checks the external tools rdm drives.
package cli

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Prerequisite represents a required CLI tool
type Prerequisite struct {
	Name        string // Command name (e.g., "git")
	Required    bool   // Whether rdm can run without it
	Description string // Human-readable description
	InstallURL  string // URL for installation instructions
	VersionFlag string // Flag printing the version; empty skips the version check
	MinVersion  string // Oldest supported version, as "major.minor"
}

// DefaultPrerequisites returns the list of CLI tools needed by rdm
func DefaultPrerequisites() []Prerequisite {
	return []Prerequisite{
		{
			Name:        "git",
			Required:    true,
			Description: "Git version control (2.38 or newer for merge-tree --write-tree)",
			InstallURL:  "https://git-scm.com/downloads",
			VersionFlag: "--version",
			MinVersion:  "2.38",
		},
		{
			Name:        "ssh",
			Required:    false, // Only needed for ssh remotes
			Description: "OpenSSH client (optional, for ssh remotes)",
			InstallURL:  "https://www.openssh.com",
			VersionFlag: "-V",
		},
	}
}

// CheckResult contains the result of checking a prerequisite
type CheckResult struct {
	Prerequisite Prerequisite
	Found        bool
	Path         string // Path to the executable if found
	Version      string // Version string if available
	Error        error
}

// OK reports whether the tool was found and is recent enough.
func (r CheckResult) OK() bool {
	return r.Found && r.Error == nil
}

// Check verifies that a CLI tool is available in PATH and, when the
// prerequisite names a minimum version, that it is recent enough.
func Check(prereq Prerequisite) CheckResult {
	result := CheckResult{Prerequisite: prereq}

	path, err := exec.LookPath(prereq.Name)
	if err != nil {
		result.Error = fmt.Errorf("%s not found in PATH", prereq.Name)
		return result
	}

	result.Found = true
	result.Path = path

	if prereq.VersionFlag == "" {
		return result
	}
	result.Version = getVersion(path, prereq.VersionFlag)

	if prereq.MinVersion != "" && result.Version != "" {
		if !AtLeast(result.Version, prereq.MinVersion) {
			result.Error = fmt.Errorf("%s %s is older than %s", prereq.Name, result.Version, prereq.MinVersion)
		}
	}
	return result
}

// CheckAll verifies all prerequisites and returns results
func CheckAll(prereqs []Prerequisite) []CheckResult {
	results := make([]CheckResult, len(prereqs))
	for i, prereq := range prereqs {
		results[i] = Check(prereq)
	}
	return results
}

// ValidateRequired checks that all required prerequisites are met
// Returns nil if all required tools are usable, otherwise returns an error
// describing what's missing
func ValidateRequired(prereqs []Prerequisite) error {
	var missing []string

	for _, prereq := range prereqs {
		if !prereq.Required {
			continue
		}
		result := Check(prereq)
		switch {
		case !result.Found:
			missing = append(missing, fmt.Sprintf("  - %s (%s)\n    Install: %s",
				prereq.Name, prereq.Description, prereq.InstallURL))
		case result.Error != nil:
			missing = append(missing, fmt.Sprintf("  - %s\n    Upgrade: %s",
				result.Error, prereq.InstallURL))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required CLI tools:\n%s", strings.Join(missing, "\n"))
	}

	return nil
}

var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// getVersion runs the tool with flag and returns the first version number
// found in its output. ssh prints its version on stderr.
func getVersion(path, flag string) string {
	output, err := exec.Command(path, flag).CombinedOutput()
	if err != nil {
		return ""
	}
	return versionPattern.FindString(string(output))
}

// AtLeast reports whether version is the same as or newer than min.
// Both are dotted numeric versions; missing components count as zero.
func AtLeast(version, min string) bool {
	have := versionParts(version)
	want := versionParts(min)
	for i := range want {
		if have[i] != want[i] {
			return have[i] > want[i]
		}
	}
	return true
}

func versionParts(v string) [3]int {
	var parts [3]int
	m := versionPattern.FindStringSubmatch(v)
	if m == nil {
		return parts
	}
	for i := range parts {
		parts[i], _ = strconv.Atoi(m[i+1])
	}
	return parts
}

// FormatCheckResults formats check results for display
func FormatCheckResults(results []CheckResult) string {
	var sb strings.Builder

	sb.WriteString("CLI Prerequisites:\n")
	for _, r := range results {
		status := "✓"
		if !r.OK() {
			if r.Prerequisite.Required {
				status = "✗"
			} else {
				status = "○"
			}
		}

		sb.WriteString(fmt.Sprintf("  %s %s", status, r.Prerequisite.Name))
		switch {
		case r.Found && r.Version != "":
			sb.WriteString(fmt.Sprintf(" (%s)", r.Version))
			if r.Error != nil {
				sb.WriteString(fmt.Sprintf(" [needs %s]", r.Prerequisite.MinVersion))
			}
		case !r.Found && r.Prerequisite.Required:
			sb.WriteString(" [REQUIRED]")
		case !r.Found:
			sb.WriteString(" [optional]")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
