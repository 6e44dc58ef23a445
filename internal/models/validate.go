package models

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// TimestampLayouts are the accepted spellings of created/updated.
var TimestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Validate checks the required fields and timestamp formats.
func (f *Frontmatter) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Title, validation.Required, validation.By(notBlank)),
		validation.Field(&f.IsCompleted, validation.NotNil),
		validation.Field(&f.Created, validation.Required, validation.By(timestamp)),
		validation.Field(&f.Updated, validation.By(timestamp)),
	)
}

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	return nil
}

func timestamp(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, ok := ParseTimestamp(s); !ok {
		return errors.New("must be an RFC 3339 timestamp or a YYYY-MM-DD date")
	}
	return nil
}

// ParseTimestamp parses s with the first matching layout.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range TimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
