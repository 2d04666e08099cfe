package quality

import (
	"time"
)

// Dataset is a read-only handle over a dataset snapshot. Implementations
// must return stable values for the lifetime of the handle so that
// re-validating an unchanged snapshot yields an identical report.
type Dataset interface {
	// Name returns the dataset/table identifier.
	Name() string
	// Rows returns the number of rows in the snapshot.
	Rows() int
	// Column returns the values of a column, one entry per row. Nil entries
	// represent NULLs. The second result is false when the column does not
	// exist.
	Column(name string) ([]any, bool)
	// Reference returns the values of a column in a related table, used by
	// cross-table consistency checks.
	Reference(table, column string) ([]any, bool)
	// SnapshotTime returns the instant the snapshot was taken. Timeliness
	// checks measure age against this time, not the wall clock.
	SnapshotTime() time.Time
}

// TableSnapshot is an in-memory Dataset implementation. It backs tests and
// embedded use where the caller materializes a sample before gating.
type TableSnapshot struct {
	TableName string
	TakenAt   time.Time
	Columns   map[string][]any
	// Related holds sibling tables reachable by consistency checks.
	Related map[string]*TableSnapshot
}

// NewTableSnapshot creates a snapshot with the given name and capture time.
func NewTableSnapshot(name string, takenAt time.Time) *TableSnapshot {
	return &TableSnapshot{
		TableName: name,
		TakenAt:   takenAt,
		Columns:   make(map[string][]any),
		Related:   make(map[string]*TableSnapshot),
	}
}

// WithColumn sets a column's values and returns the receiver.
func (t *TableSnapshot) WithColumn(name string, values []any) *TableSnapshot {
	t.Columns[name] = values
	return t
}

// WithRelated attaches a related table and returns the receiver.
func (t *TableSnapshot) WithRelated(rel *TableSnapshot) *TableSnapshot {
	t.Related[rel.TableName] = rel
	return t
}

func (t *TableSnapshot) Name() string { return t.TableName }

func (t *TableSnapshot) Rows() int {
	max := 0
	for _, vals := range t.Columns {
		if len(vals) > max {
			max = len(vals)
		}
	}
	return max
}

func (t *TableSnapshot) Column(name string) ([]any, bool) {
	vals, ok := t.Columns[name]
	return vals, ok
}

func (t *TableSnapshot) Reference(table, column string) ([]any, bool) {
	rel, ok := t.Related[table]
	if !ok {
		return nil, false
	}
	return rel.Column(column)
}

func (t *TableSnapshot) SnapshotTime() time.Time { return t.TakenAt }
