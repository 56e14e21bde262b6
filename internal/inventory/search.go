package inventory

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
)

// FindDevices returns devices whose name, kind, or rack matches the query.
// Matching is case-insensitive using Unicode case folding, so inventories with
// non-ASCII naming conventions still match the way users expect.
func (s *Store) FindDevices(ctx context.Context, query string) ([]*Device, error) {
	folder := cases.Fold()
	needle := folder.String(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	devices, err := s.ListDevices(ctx, "")
	if err != nil {
		return nil, err
	}

	var matches []*Device
	for _, device := range devices {
		haystack := folder.String(device.Name + " " + device.Kind + " " + device.RackName)
		if strings.Contains(haystack, needle) {
			matches = append(matches, device)
		}
	}
	return matches, nil
}
