package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/spf13/cobra"
)

// AppVersion is set by build flags.
var AppVersion = "v0.1.0"

const releasesURL = "https://api.github.com/repos/spindlehq/spindle/releases/latest"

type githubRelease struct {
	TagName string `json:"tag_name"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("spindle %s\n", AppVersion)
		fmt.Printf("go: %s, %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		checkForUpdates()
	},
}

// checkForUpdates compares against the latest GitHub release. Failures
// are silent; this is best-effort.
func checkForUpdates() {
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(releasesURL)
	if err != nil {
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return
	}

	current, err := version.NewVersion(AppVersion)
	if err != nil {
		return
	}
	latest, err := version.NewVersion(release.TagName)
	if err != nil {
		return
	}

	if current.LessThan(latest) {
		fmt.Printf("\nA newer version is available: %s (you have %s)\n", release.TagName, AppVersion)
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
