package countries

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Codes maps country names, as reported by the geocoding backend, to ISO
// alpha-2 codes.
type Codes struct {
	byName map[string]string
}

type codeEntry struct {
	Name   string `json:"name"`
	Alpha2 string `json:"alpha-2"`
}

func LoadCodes(path string) (*Codes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading code table: %w", err)
	}
	return ParseCodes(data)
}

func ParseCodes(data []byte) (*Codes, error) {
	var entries []codeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing code table: %w", err)
	}

	c := &Codes{byName: make(map[string]string, len(entries))}
	for _, e := range entries {
		if e.Name == "" || e.Alpha2 == "" {
			return nil, fmt.Errorf("malformed code entry %+v", e)
		}
		c.byName[strings.ToLower(e.Name)] = e.Alpha2
	}
	return c, nil
}

// Alpha2 looks up the alpha-2 code for a backend-reported country name.
// Matching is case-insensitive; the backend is not consistent about casing.
func (c *Codes) Alpha2(name string) (string, bool) {
	code, ok := c.byName[strings.ToLower(name)]
	return code, ok
}
