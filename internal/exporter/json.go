// JSON renderer. Absent optional fields and absent sections are omitted,
// never null; the section form wraps one collector's slice of the
// snapshot under its name, mirroring the full document's keys.
package exporter

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hostpulse/agent/internal/models"
)

// ContentTypeJSON is the content type served with JSON bodies.
const ContentTypeJSON = "application/json"

// ErrUnknownSection is returned for a section name outside cpu, memory,
// and gpu.
var ErrUnknownSection = errors.New("unknown metrics section")

// Sections lists the section names RenderJSONSection accepts, in
// document order.
var Sections = []string{"cpu", "memory", "gpu"}

// RenderJSON serializes the full snapshot.
func RenderJSON(snap *models.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// RenderJSONSection serializes a single collector's slice of the
// snapshot as {"<section>": {...}}. A section whose collector has no
// payload renders as an empty document, consistent with the omission
// policy of the full form.
func RenderJSONSection(snap *models.Snapshot, section string) ([]byte, error) {
	doc := make(map[string]any, 1)
	switch section {
	case "cpu":
		if snap.CPU != nil {
			doc[section] = snap.CPU
		}
	case "memory":
		if snap.Memory != nil {
			doc[section] = snap.Memory
		}
	case "gpu":
		if snap.GPU != nil {
			doc[section] = snap.GPU
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding section %s: %w", section, err)
	}
	return data, nil
}
