package publishers

import (
	"fmt"
	"strconv"
)

// StatusFilter selects events by the fetched response status. Entries are
// exact codes ("404") or classes ("2xx"). An empty filter matches every event.
type StatusFilter []string

// Match reports whether status passes the filter.
func (f StatusFilter) Match(status int) bool {
	if len(f) == 0 {
		return true
	}
	for _, entry := range f {
		if code, err := strconv.Atoi(entry); err == nil {
			if code == status {
				return true
			}
			continue
		}
		if len(entry) == 3 && entry[1:] == "xx" && int(entry[0]-'0') == status/100 {
			return true
		}
	}
	return false
}

func (f StatusFilter) validate() error {
	for _, entry := range f {
		if code, err := strconv.Atoi(entry); err == nil {
			if code < 100 || code > 599 {
				return fmt.Errorf("status %d out of range", code)
			}
			continue
		}
		if len(entry) != 3 || entry[1:] != "xx" || entry[0] < '1' || entry[0] > '5' {
			return fmt.Errorf("status entry %q is neither a code nor a class like 2xx", entry)
		}
	}
	return nil
}
