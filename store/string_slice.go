package store

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// StringSlice stores a []string as a single comma separated column.
// Elements may not contain commas.
type StringSlice []string

// Value implements driver.Valuer.
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "", nil
	}

	for _, v := range s {
		if strings.Contains(v, ",") {
			return "", fmt.Errorf("unsafe string %q in slice", v)
		}
	}

	return strings.Join(s, ","), nil
}

// Scan implements sql.Scanner.
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("failed to scan StringSlice from %T", value)
	}

	if str == "" {
		*s = StringSlice{}
	} else {
		*s = strings.Split(str, ",")
	}
	return nil
}
