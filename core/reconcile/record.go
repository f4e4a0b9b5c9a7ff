package reconcile

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"farm-agent/core/utils"
)

// ErrCorruptStore is returned by Load when the persisted cache cannot be
// parsed. The store is only written by this process, so callers must treat it
// as fatal instead of continuing with an empty cache.
var ErrCorruptStore = errors.New("corrupt checksum cache")

var recordPattern = regexp.MustCompile(`^\{type="([^"]*)",id="([^"]*)",lastUpdated="(\d+)",checksum="([0-9A-F]+)"\}$`)

// FormatRecord renders r as one store line without the trailing newline.
func FormatRecord(r Record) string {
	return fmt.Sprintf(`{type="%s",id="%s",lastUpdated="%s",checksum="%s"}`,
		r.Category, r.ID, utils.FormatTicks(r.LastUpdated), r.Digest)
}

// ParseRecord parses one store line.
func ParseRecord(line string) (Record, error) {
	m := recordPattern.FindStringSubmatch(line)
	if m == nil {
		return Record{}, fmt.Errorf("%w: malformed record %q", ErrCorruptStore, line)
	}

	category, err := ParseCategory(m[1])
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	if m[2] == "" {
		return Record{}, fmt.Errorf("%w: empty id in %q", ErrCorruptStore, line)
	}
	updated, err := utils.ParseTicks(m[3])
	if err != nil {
		return Record{}, fmt.Errorf("%w: bad lastUpdated in %q: %v", ErrCorruptStore, line, err)
	}

	return Record{Category: category, ID: m[2], LastUpdated: updated, Digest: m[4]}, nil
}

func validateID(id string) error {
	switch {
	case id == "":
		return errors.New("empty identifier")
	case strings.Contains(id, `"`):
		return fmt.Errorf("identifier %q contains a double quote", id)
	case !utils.IsSingleLine(id):
		return fmt.Errorf("identifier %q contains a line break", id)
	}
	return nil
}
