package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/notepub/internal/models"
)

// Record brings the manifest in line with one completed run:
//   - documents whose checksum changed are upserted
//   - documents no longer published are deleted
//
// Failures on individual documents do not stop the others.
func (db *DB) Record(ctx context.Context, published []models.Document) error {
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	var errs []error
	current := make(map[string]struct{}, len(published))
	for _, d := range published {
		if err := ctx.Err(); err != nil {
			return err
		}
		current[d.Path] = struct{}{}
		if cs, ok := checksums[d.Path]; ok && cs == d.Checksum {
			continue
		}
		if err := db.UpsertDocument(d); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Path, err))
		}
	}

	for p := range checksums {
		if _, ok := current[p]; ok {
			continue
		}
		if err := db.DeleteDocument(p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}
