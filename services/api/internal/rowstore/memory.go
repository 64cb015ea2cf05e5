package rowstore

import (
	"context"
	"strconv"
	"sync"
)

// Memory is an in-process Store used for local runs and tests. Every call
// is individually atomic but, like the real stores, calls are not atomic
// with each other.
type Memory struct {
	mu     sync.Mutex
	tables map[string][]Row
	nextID int

	// FailUpdate, when set, is consulted before every UpdateRow; a non-nil
	// result fails the call without touching the row.
	FailUpdate func(table, rowID string, patch Fields) error
	// FailAppend is the AppendRows counterpart of FailUpdate.
	FailAppend func(table string, records []Fields) error
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]Row)}
}

func (m *Memory) ListRows(ctx context.Context, table string, match Match) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Row
	for _, row := range m.tables[table] {
		if !match.Matches(row.Fields) {
			continue
		}
		out = append(out, Row{ID: row.ID, Fields: copyFields(row.Fields)})
	}
	return out, nil
}

func (m *Memory) UpdateRow(ctx context.Context, table, rowID string, patch Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUpdate != nil {
		if err := m.FailUpdate(table, rowID, patch); err != nil {
			return err
		}
	}
	rows := m.tables[table]
	for i := range rows {
		if rows[i].ID != rowID {
			continue
		}
		for k, v := range patch {
			rows[i].Fields[k] = v
		}
		return nil
	}
	return ErrRowNotFound
}

func (m *Memory) AppendRows(ctx context.Context, table string, records []Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAppend != nil {
		if err := m.FailAppend(table, records); err != nil {
			return err
		}
	}
	for _, rec := range records {
		m.nextID++
		m.tables[table] = append(m.tables[table], Row{
			ID:     strconv.Itoa(m.nextID),
			Fields: copyFields(rec),
		})
	}
	return nil
}

func copyFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
