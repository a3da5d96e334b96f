package cms

import (
	"fmt"
	"sort"
	"strings"

	polarisErrors "github.com/harunnryd/polaris/internal/errors"
)

var regionBaseURLs = map[string]string{
	"na":       "https://api.contentstack.io",
	"us":       "https://api.contentstack.io",
	"eu":       "https://eu-api.contentstack.com",
	"au":       "https://au-api.contentstack.com",
	"azure-na": "https://azure-na-api.contentstack.com",
	"azure-eu": "https://azure-eu-api.contentstack.com",
	"gcp-na":   "https://gcp-na-api.contentstack.com",
	"gcp-eu":   "https://gcp-eu-api.contentstack.com",
}

// BaseURL resolves a region name (case-insensitive, "_" or "-") to the
// management API host.
func BaseURL(region string) (string, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(region)), "_", "-")
	if key == "" {
		return "", polarisErrors.Configuration("Missing CONTENTSTACK_REGION.")
	}
	if url, ok := regionBaseURLs[key]; ok {
		return url, nil
	}
	return "", polarisErrors.Configuration(fmt.Sprintf("Unsupported CONTENTSTACK_REGION: %s. Expected one of %s.", region, strings.Join(Regions(), ", ")))
}

// Regions lists the accepted region names.
func Regions() []string {
	names := make([]string, 0, len(regionBaseURLs))
	for name := range regionBaseURLs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
