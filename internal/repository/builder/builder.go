package builder

import (
	"fmt"
	"strings"
)

// SQLBuilder helps construct postgres queries dynamically. Conditions are
// written with "?" and numbered ($1, $2, ...) at Build time.
type SQLBuilder struct {
	verb    verb
	table   string
	columns []string
	values  []interface{}
	sets    []clause
	joins   []string
	orderBy []string
	limit   int
	offset  int

	// where clauses are joined with AND; the alternatives (groups, Or and
	// WhereRaw) are joined to that block with OR.
	where        []clause
	alternatives []alternative

	conflict  []string
	onUpdate  []string
	returning []string
}

type verb int

const (
	verbNone verb = iota
	verbSelect
	verbInsert
	verbUpdate
	verbDelete
)

// clause is a SQL fragment with "?" placeholders and its arguments.
type clause struct {
	sql  string
	args []interface{}
}

type alternative struct {
	clause
	group *SQLBuilder
}

// NewSQLBuilder creates a new instance of SQLBuilder.
func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{}
}

// Select specifies the columns to retrieve.
func (b *SQLBuilder) Select(cols ...string) *SQLBuilder {
	b.verb = verbSelect
	b.columns = cols
	return b
}

// Insert specifies the table and columns for insertion.
func (b *SQLBuilder) Insert(table string, cols ...string) *SQLBuilder {
	b.verb = verbInsert
	b.table = table
	b.columns = cols
	return b
}

// Update specifies the table to update.
func (b *SQLBuilder) Update(table string) *SQLBuilder {
	b.verb = verbUpdate
	b.table = table
	return b
}

// Delete specifies the table to delete from.
func (b *SQLBuilder) Delete(table string) *SQLBuilder {
	b.verb = verbDelete
	b.table = table
	return b
}

// From specifies the table to select from.
func (b *SQLBuilder) From(table string) *SQLBuilder {
	b.table = table
	return b
}

// Set adds a column assignment to an update.
func (b *SQLBuilder) Set(col string, val interface{}) *SQLBuilder {
	b.sets = append(b.sets, clause{sql: col + " = ?", args: []interface{}{val}})
	return b
}

// Values specifies the values for insertion.
func (b *SQLBuilder) Values(vals ...interface{}) *SQLBuilder {
	b.values = vals
	return b
}

// OnConflict turns an insert into an upsert on the conflict target cols.
// Without DoUpdate the conflicting row is left alone.
func (b *SQLBuilder) OnConflict(cols ...string) *SQLBuilder {
	b.conflict = cols
	return b
}

// DoUpdate lists the columns overwritten from EXCLUDED on conflict.
func (b *SQLBuilder) DoUpdate(cols ...string) *SQLBuilder {
	b.onUpdate = cols
	return b
}

// Returning adds a RETURNING clause.
func (b *SQLBuilder) Returning(cols ...string) *SQLBuilder {
	b.returning = cols
	return b
}

// Where adds a condition joined with AND.
func (b *SQLBuilder) Where(condition string, args ...interface{}) *SQLBuilder {
	b.where = append(b.where, clause{sql: condition, args: args})
	return b
}

// Join adds a JOIN clause.
func (b *SQLBuilder) Join(joinType, table, on string) *SQLBuilder {
	b.joins = append(b.joins, fmt.Sprintf("%s JOIN %s ON %s", joinType, table, on))
	return b
}

// OrderBy adds an ORDER BY clause.
func (b *SQLBuilder) OrderBy(order string) *SQLBuilder {
	b.orderBy = append(b.orderBy, order)
	return b
}

// Limit adds a LIMIT clause.
func (b *SQLBuilder) Limit(limit int) *SQLBuilder {
	b.limit = limit
	return b
}

// Offset adds an OFFSET clause.
func (b *SQLBuilder) Offset(offset int) *SQLBuilder {
	b.offset = offset
	return b
}

// Or adds a condition joined with OR.
func (b *SQLBuilder) Or(condition string, args ...interface{}) *SQLBuilder {
	b.alternatives = append(b.alternatives, alternative{clause: clause{sql: condition, args: args}})
	return b
}

// WhereGroup adds a parenthesized condition built by fn. Inside the group,
// the Where block and every alternative are joined with OR.
func (b *SQLBuilder) WhereGroup(fn func(*SQLBuilder) *SQLBuilder) *SQLBuilder {
	b.alternatives = append(b.alternatives, alternative{group: fn(NewSQLBuilder())})
	return b
}

// WhereRaw adds a raw SQL condition joined with OR.
func (b *SQLBuilder) WhereRaw(sql string, args ...interface{}) *SQLBuilder {
	b.alternatives = append(b.alternatives, alternative{clause: clause{sql: sql, args: args}})
	return b
}

// BuildSafe is Build plus a check that every clause got exactly as many
// arguments as it has placeholders.
func (b *SQLBuilder) BuildSafe() (string, []interface{}, error) {
	w := b.build()
	if w.placeholders != len(w.args) {
		return "", nil, fmt.Errorf("placeholder count (%d) does not match argument count (%d)", w.placeholders, len(w.args))
	}
	return w.String(), w.args, nil
}

// Build constructs the final SQL string and its arguments. It can be
// called more than once.
func (b *SQLBuilder) Build() (string, []interface{}) {
	w := b.build()
	return w.String(), w.args
}

func (b *SQLBuilder) build() *writer {
	w := &writer{}

	switch b.verb {
	case verbSelect:
		w.raw("SELECT " + strings.Join(b.columns, ", ") + " FROM " + b.table)
		for _, join := range b.joins {
			w.raw(" " + join)
		}
	case verbInsert:
		w.raw("INSERT INTO " + b.table + " (" + strings.Join(b.columns, ", ") + ") VALUES (")
		marks := make([]string, len(b.values))
		for i := range marks {
			marks[i] = "?"
		}
		w.add(clause{sql: strings.Join(marks, ", "), args: b.values})
		w.raw(")")
		b.writeConflict(w)
		b.writeReturning(w)
		return w
	case verbUpdate:
		w.raw("UPDATE " + b.table + " SET ")
		for i, set := range b.sets {
			if i > 0 {
				w.raw(", ")
			}
			w.add(set)
		}
	case verbDelete:
		w.raw("DELETE FROM " + b.table)
	}

	if b.hasConditions() {
		w.raw(" WHERE ")
		b.writeConditions(w)
	}

	if len(b.orderBy) > 0 {
		w.raw(" ORDER BY " + strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		w.raw(fmt.Sprintf(" LIMIT %d", b.limit))
	}
	if b.offset > 0 {
		w.raw(fmt.Sprintf(" OFFSET %d", b.offset))
	}
	b.writeReturning(w)
	return w
}

func (b *SQLBuilder) hasConditions() bool {
	return len(b.where) > 0 || len(b.alternatives) > 0
}

// writeConditions writes the Where block, then every alternative joined
// with OR.
func (b *SQLBuilder) writeConditions(w *writer) {
	first := true
	next := func() {
		if !first {
			w.raw(" OR ")
		}
		first = false
	}

	if len(b.where) > 0 {
		next()
		for i, c := range b.where {
			if i > 0 {
				w.raw(" AND ")
			}
			w.add(c)
		}
	}
	for _, alt := range b.alternatives {
		if alt.group == nil {
			next()
			w.add(alt.clause)
			continue
		}
		if !alt.group.hasConditions() {
			continue
		}
		next()
		w.raw("(")
		alt.group.writeConditions(w)
		w.raw(")")
	}
}

func (b *SQLBuilder) writeConflict(w *writer) {
	if len(b.conflict) == 0 {
		return
	}
	w.raw(" ON CONFLICT (" + strings.Join(b.conflict, ", ") + ")")
	if len(b.onUpdate) == 0 {
		w.raw(" DO NOTHING")
		return
	}
	sets := make([]string, len(b.onUpdate))
	for i, col := range b.onUpdate {
		sets[i] = col + " = EXCLUDED." + col
	}
	w.raw(" DO UPDATE SET " + strings.Join(sets, ", "))
}

func (b *SQLBuilder) writeReturning(w *writer) {
	if len(b.returning) > 0 {
		w.raw(" RETURNING " + strings.Join(b.returning, ", "))
	}
}

// writer numbers placeholders in the order they are written, which keeps
// args aligned with $n whatever order the clauses were added in.
type writer struct {
	sb           strings.Builder
	args         []interface{}
	placeholders int
}

func (w *writer) raw(s string) { w.sb.WriteString(s) }

func (w *writer) add(c clause) {
	parts := strings.Split(c.sql, "?")
	for i, part := range parts {
		w.sb.WriteString(part)
		if i < len(parts)-1 {
			w.placeholders++
			fmt.Fprintf(&w.sb, "$%d", w.placeholders)
		}
	}
	w.args = append(w.args, c.args...)
}

func (w *writer) String() string { return w.sb.String() }
