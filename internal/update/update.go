// Package update checks a hosted manifest for a newer desktop build. Update
// checking exists only on desktop; web deploys update themselves and mobile
// goes through the store.
package update

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/iceinvein/bootleg-msn-sub000/internal/logging"
	"github.com/iceinvein/bootleg-msn-sub000/internal/shared/types"
)

// Manifest is the hosted update descriptor.
type Manifest struct {
	Version string `json:"version"`
	Notes   string `json:"notes,omitempty"`
	URL     string `json:"url,omitempty"`
	PubDate string `json:"pub_date,omitempty"`
}

// Status is the outcome of one check.
type Status struct {
	Available bool
	Current   string
	Latest    string
	Notes     string
	URL       string
	// Err carries a non-fatal check failure; Available is false then.
	Err error
}

// Checker polls the manifest endpoint.
type Checker struct {
	platform    types.Platform
	current     string
	manifestURL string
	client      *retryablehttp.Client
	log         *logging.Logger
}

// NewChecker creates a checker for the given platform and running version.
func NewChecker(platform types.Platform, current, manifestURL string, log *logging.Logger) *Checker {
	if log == nil {
		log = logging.NewDefault()
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.HTTPClient.Timeout = 15 * time.Second
	client.Logger = nil

	return &Checker{
		platform:    platform,
		current:     current,
		manifestURL: manifestURL,
		client:      client,
		log:         log.Component("update"),
	}
}

// Check fetches the manifest and compares versions. Off desktop it reports
// up-to-date without a network call. Network or manifest failures are
// non-fatal: logged and reported in Status.Err.
func (c *Checker) Check(ctx context.Context) Status {
	status := Status{Current: c.current}
	if c.platform != types.PlatformDesktop {
		return status
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.manifestURL, nil)
	if err != nil {
		status.Err = err
		return status
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("update check failed", zap.Error(err))
		status.Err = err
		return status
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		// The update endpoint's way of saying "nothing newer".
		return status
	}
	if resp.StatusCode != http.StatusOK {
		status.Err = fmt.Errorf("update: manifest fetch returned %d", resp.StatusCode)
		c.log.Warn("update check rejected", zap.Int("status", resp.StatusCode))
		return status
	}

	var manifest Manifest
	dec := sonic.ConfigDefault.NewDecoder(resp.Body)
	if err := dec.Decode(&manifest); err != nil {
		status.Err = fmt.Errorf("update: malformed manifest: %w", err)
		c.log.Warn("update manifest malformed", zap.Error(err))
		return status
	}

	status.Latest = manifest.Version
	status.Notes = manifest.Notes
	status.URL = manifest.URL
	status.Available = Newer(manifest.Version, c.current)
	return status
}

// Newer reports whether candidate is a strictly newer semantic version than
// current. Unparseable versions compare as not newer.
func Newer(candidate, current string) bool {
	a, okA := parseVersion(candidate)
	b, okB := parseVersion(current)
	if !okA || !okB {
		return false
	}
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

func parseVersion(v string) ([3]int, bool) {
	var out [3]int
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v == "" {
		return out, false
	}
	parts := strings.SplitN(v, ".", 3)
	for i, p := range parts {
		// Tolerate pre-release suffixes on the last part ("1.2.3-beta.1").
		if i == len(parts)-1 {
			if dash := strings.IndexByte(p, '-'); dash >= 0 {
				p = p[:dash]
			}
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return out, false
		}
		out[i] = n
	}
	return out, true
}
