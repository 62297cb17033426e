package directory

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/clive/kiosk-go/internal/model"
)

// Roster is the YAML file imported with `kiosk directory import`:
//
//	students:
//	  - okul_no: 1234
//	    ad: Ayşe
//	    soyad: Kaya
//	    sinif: 9-A
type Roster struct {
	Students []RosterEntry `yaml:"students"`
}

// RosterEntry is one student in a roster
type RosterEntry struct {
	OkulNo scalar `yaml:"okul_no"`
	Ad     string `yaml:"ad"`
	Soyad  string `yaml:"soyad"`
	Sinif  scalar `yaml:"sinif"`
}

// scalar keeps the literal text of a YAML scalar, so numbers like 0042 or
// 9 decode without type errors.
type scalar string

func (s *scalar) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar", n.Line)
	}
	*s = scalar(strings.TrimSpace(n.Value))
	return nil
}

// maxIDLength mirrors the kiosk form, which accepts at most four digits
const maxIDLength = 4

// LoadRoster parses and validates a roster. All problems are reported together.
func LoadRoster(r io.Reader) ([]model.IdentityRecord, error) {
	var roster Roster
	if err := yaml.NewDecoder(r).Decode(&roster); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse roster: %w", err)
	}

	var errs []string
	seen := make(map[string]int)
	out := make([]model.IdentityRecord, 0, len(roster.Students))
	for i, e := range roster.Students {
		id := string(e.OkulNo)
		switch {
		case id == "":
			errs = append(errs, fmt.Sprintf("students[%d]: okul_no is required", i))
			continue
		case len(id) > maxIDLength || !isDigits(id):
			errs = append(errs, fmt.Sprintf("students[%d]: okul_no %q must be 1-%d digits", i, id, maxIDLength))
			continue
		case strings.TrimSpace(e.Ad) == "" && strings.TrimSpace(e.Soyad) == "":
			errs = append(errs, fmt.Sprintf("students[%d]: ad or soyad is required", i))
			continue
		}
		if prev, ok := seen[id]; ok {
			errs = append(errs, fmt.Sprintf("students[%d]: okul_no %s duplicates students[%d]", i, id, prev))
			continue
		}
		seen[id] = i

		out = append(out, model.IdentityRecord{
			ID:         id,
			GivenName:  strings.TrimSpace(e.Ad),
			FamilyName: strings.TrimSpace(e.Soyad),
			ClassName:  string(e.Sinif),
		})
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("roster: validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return out, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
