package audit

import "context"

// Repository persists audit entries. Append-only by contract: there are no
// update or delete operations.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
}
