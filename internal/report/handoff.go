// Package report builds the request a report generator receives for a
// detected modality.
package report

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/saeedalam/radscribe/internal/patterns"
	"github.com/saeedalam/radscribe/pkg/types"
)

// ModalityParam is the query parameter carrying the modality label
const ModalityParam = "modality"

// HandoffURL returns base with the modality label attached as a query
// parameter. A nil detection returns base unchanged.
func HandoffURL(base string, modality *types.DetectionResult) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse report url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("report url %q must be absolute", base)
	}

	if modality == nil {
		return u.String(), nil
	}
	if err := patterns.ValidateLabel(modality.Label); err != nil {
		return "", err
	}

	q := u.Query()
	q.Set(ModalityParam, modality.Label)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
