package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	dErrors "filer/pkg/domain-errors"
)

// FilingID identifies a filing row. Filings are numbered by the database.
type FilingID int64

// BusinessID identifies a business row. It is distinct from the public
// registry identifier (e.g. BC0871227).
type BusinessID int64

// ParseFilingID validates an identifier taken from a queue message or the
// command line. Identifiers must be positive integers.
func ParseFilingID(s string) (FilingID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.KindFatal, "filing identifier is required")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.KindFatal, "invalid filing identifier")
	}
	if n <= 0 {
		return 0, dErrors.Newf(dErrors.KindFatal, "invalid filing identifier %d", n)
	}
	return FilingID(n), nil
}

func (id FilingID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// IsNil reports whether the identifier is unset.
func (id FilingID) IsNil() bool {
	return id <= 0
}

// UnmarshalJSON accepts both JSON numbers and numeric strings, since
// upstream publishers are not consistent about it.
func (id *FilingID) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Errorf("filing identifier must be a string or number")
	}
	parsed, err := ParseFilingID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id BusinessID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// IsNil reports whether the business has not been persisted yet.
func (id BusinessID) IsNil() bool {
	return id <= 0
}
