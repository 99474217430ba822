// Package update checks GitHub for newer snapmig releases.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pthm/snapmig/internal/buildinfo"
)

const (
	githubAPIURL = "https://api.github.com/repos/pthm/snapmig/releases/latest"
	cacheTTL     = 24 * time.Hour
	cacheFile    = "update-check.json"
)

// Info contains update check results
type Info struct {
	LatestVersion   string    `json:"latest_version"`
	CurrentVersion  string    `json:"current_version"`
	ReleaseURL      string    `json:"release_url"`
	CheckedAt       time.Time `json:"checked_at"`
	UpdateAvailable bool      `json:"update_available"`
}

// githubRelease represents the GitHub API response
type githubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Checker looks up the latest release. The zero value queries GitHub and
// caches under the user cache directory.
type Checker struct {
	// URL is the releases endpoint. Defaults to the GitHub API.
	URL string

	// CacheDir overrides the cache location.
	CacheDir string

	// Client defaults to an http.Client with a 5s timeout.
	Client *http.Client

	// Current is the running version. Defaults to buildinfo.Version.
	Current string
}

// CheckWithCache checks for updates using the default Checker.
func CheckWithCache(ctx context.Context) (*Info, error) {
	var c Checker
	return c.CheckWithCache(ctx)
}

// CheckWithCache checks for updates using cache when available
func (c *Checker) CheckWithCache(ctx context.Context) (*Info, error) {
	// Try to load from cache first
	info, err := c.loadCache()
	if err == nil && time.Since(info.CheckedAt) < cacheTTL {
		// Cache is valid, update current version for comparison
		info.CurrentVersion = c.current()
		info.UpdateAvailable = compareVersions(info.CurrentVersion, info.LatestVersion) < 0
		return info, nil
	}

	// Cache miss or expired, fetch from GitHub
	info, err = c.check(ctx)
	if err != nil {
		return nil, err
	}

	// Save to cache (ignore errors)
	_ = c.saveCache(info)

	return info, nil
}

func (c *Checker) current() string {
	if c.Current != "" {
		return c.Current
	}
	return buildinfo.Version
}

// check fetches the latest release from GitHub
func (c *Checker) check(ctx context.Context) (*Info, error) {
	url := c.URL
	if url == "" {
		url = githubAPIURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "snapmig/"+c.current())

	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, err
	}

	latestVersion := strings.TrimPrefix(release.TagName, "v")
	currentVersion := c.current()

	return &Info{
		LatestVersion:   latestVersion,
		CurrentVersion:  currentVersion,
		ReleaseURL:      release.HTMLURL,
		CheckedAt:       time.Now(),
		UpdateAvailable: compareVersions(currentVersion, latestVersion) < 0,
	}, nil
}

// cacheDir returns the cache directory path
func (c *Checker) cacheDir() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	// Use XDG_CACHE_HOME if set, otherwise ~/.cache
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, "snapmig"), nil
}

// loadCache loads the cached update info
func (c *Checker) loadCache() (*Info, error) {
	dir, err := c.cacheDir()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, cacheFile))
	if err != nil {
		return nil, err
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// saveCache saves the update info to cache
func (c *Checker) saveCache(info *Info) error {
	dir, err := c.cacheDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, cacheFile), data, 0o644)
}

// compareVersions compares two semver strings
// Returns -1 if a < b, 0 if a == b, 1 if a > b
func compareVersions(a, b string) int {
	a = strings.TrimPrefix(a, "v")
	b = strings.TrimPrefix(b, "v")

	// dev is always "latest"
	if a == "dev" {
		return 1
	}
	if b == "dev" {
		return -1
	}

	partsA := strings.Split(a, ".")
	partsB := strings.Split(b, ".")

	for i := 0; i < max(len(partsA), len(partsB)); i++ {
		numA, numB := part(partsA, i), part(partsB, i)
		if numA < numB {
			return -1
		}
		if numA > numB {
			return 1
		}
	}

	return 0
}

// part returns the numeric value of parts[i], ignoring pre-release
// suffixes like "0-beta". Missing parts are zero.
func part(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, _ := strconv.Atoi(strings.Split(parts[i], "-")[0])
	return n
}
