package tablestore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/frier-sam/dynamic-saas/internal/sqlutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store executes dynamic DDL and DML against the physical database. Table and
// column names arrive from callers that ultimately got them from users or a
// language model, so every identifier is sanitized immediately before it is
// interpolated into SQL text; values are always bound parameters.
//
// Backend errors never escape: each operation logs the failure together with
// the offending statement and returns a sentinel (false, -1 or an empty
// slice). Callers treat the sentinel, not an exception, as the error signal.
//
// The where and order_by fragments accepted by Select/Update/Delete are
// trusted raw SQL supplied by internal callers only. That trust boundary is
// deliberate: the fragments are not parsed or sanitized here.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// ColumnDef is one column of a CREATE TABLE statement. Type is a raw SQL
// type/constraint string trusted from the inference engine or its fallback.
type ColumnDef struct {
	Name string
	Type string
}

func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// WithTx returns a Store bound to the given transaction handle, so schema
// changes and metadata writes can share one atomic unit.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx, logger: s.logger}
}

func (s *Store) dialect() string {
	return s.db.Dialector.Name()
}

// safeName sanitizes an identifier, logging when characters had to be
// stripped. An empty result is reported to the caller as a failure.
func (s *Store) safeName(kind, name string) (string, bool) {
	safe, err := sqlutil.SanitizeIdentifier(name)
	if err != nil {
		s.logger.Error("identifier is empty after sanitization",
			zap.String("kind", kind), zap.String("name", name))
		return "", false
	}
	if safe != name {
		s.logger.Warn("identifier contained invalid characters, sanitized",
			zap.String("kind", kind), zap.String("from", name), zap.String("to", safe))
	}
	return safe, true
}

// CreateTable issues CREATE TABLE IF NOT EXISTS with the given columns, in
// order, plus any extra constraint fragments (foreign keys). Returns false on
// failure.
func (s *Store) CreateTable(name string, columns []ColumnDef, constraints []string) bool {
	tableName, ok := s.safeName("table", name)
	if !ok {
		return false
	}

	defs := make([]string, 0, len(columns)+len(constraints))
	for _, col := range columns {
		colName, ok := s.safeName("column", col.Name)
		if !ok {
			return false
		}
		defs = append(defs, colName+" "+s.portableType(col.Type))
	}
	defs = append(defs, constraints...)

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tableName, strings.Join(defs, ", "))
	if err := s.db.Exec(query).Error; err != nil {
		s.logger.Error("failed to create table",
			zap.String("table", tableName), zap.String("query", query), zap.Error(err))
		return false
	}
	s.logger.Info("created table", zap.String("table", tableName))
	return true
}

// DropTable issues DROP TABLE IF EXISTS; dropping a missing table succeeds.
func (s *Store) DropTable(name string) bool {
	tableName, ok := s.safeName("table", name)
	if !ok {
		return false
	}
	if err := s.db.Exec("DROP TABLE IF EXISTS " + tableName).Error; err != nil {
		s.logger.Error("failed to drop table", zap.String("table", tableName), zap.Error(err))
		return false
	}
	s.logger.Info("dropped table", zap.String("table", tableName))
	return true
}

// AddColumn alters an existing table with one new column.
func (s *Store) AddColumn(name, column, sqlType string) bool {
	tableName, ok := s.safeName("table", name)
	if !ok {
		return false
	}
	colName, ok := s.safeName("column", column)
	if !ok {
		return false
	}
	query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", tableName, colName, sqlType)
	if err := s.db.Exec(query).Error; err != nil {
		s.logger.Error("failed to add column",
			zap.String("table", tableName), zap.String("column", colName), zap.Error(err))
		return false
	}
	return true
}

// Insert writes one row and returns the new row's id, or -1 on failure.
// Column order is the sorted key order so the generated statement is
// deterministic. The target table is expected to carry an id column, which
// every inferred schema guarantees.
func (s *Store) Insert(name string, row map[string]any) int64 {
	tableName, ok := s.safeName("table", name)
	if !ok {
		return -1
	}
	if len(row) == 0 {
		s.logger.Error("refusing to insert empty row", zap.String("table", tableName))
		return -1
	}

	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	columns := make([]string, 0, len(keys))
	placeholders := make([]string, 0, len(keys))
	values := make([]any, 0, len(keys))
	for _, k := range keys {
		colName, ok := s.safeName("column", k)
		if !ok {
			return -1
		}
		columns = append(columns, colName)
		placeholders = append(placeholders, "?")
		values = append(values, row[k])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		tableName, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	query = s.rebind(query)

	var id int64
	if err := s.db.Raw(query, values...).Row().Scan(&id); err != nil {
		s.logger.Error("failed to insert row",
			zap.String("table", tableName), zap.String("query", query),
			zap.Any("values", values), zap.Error(err))
		return -1
	}
	s.logger.Info("inserted row", zap.String("table", tableName), zap.Int64("id", id))
	return id
}

// Select runs a parameterized query and returns the rows as column→value
// maps. columns nil selects *. where and orderBy are trusted fragments
// (see the Store doc comment); params are bound. Failure returns an empty
// slice.
func (s *Store) Select(name string, columns []string, where string, params []any, limit int, orderBy string) []map[string]any {
	tableName, ok := s.safeName("table", name)
	if !ok {
		return []map[string]any{}
	}

	columnsStr := "*"
	if len(columns) > 0 {
		safe := make([]string, 0, len(columns))
		for _, col := range columns {
			colName, ok := s.safeName("column", col)
			if !ok {
				return []map[string]any{}
			}
			safe = append(safe, colName)
		}
		columnsStr = strings.Join(safe, ", ")
	}

	query := fmt.Sprintf("SELECT %s FROM %s", columnsStr, tableName)
	if where != "" {
		query += " WHERE " + where
	}
	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	query = s.rebind(query)

	var results []map[string]any
	if err := s.db.Raw(query, params...).Scan(&results).Error; err != nil {
		s.logger.Error("failed to query table",
			zap.String("table", tableName), zap.String("query", query), zap.Error(err))
		return []map[string]any{}
	}
	if results == nil {
		results = []map[string]any{}
	}
	return results
}

// Update applies set values to rows matching the where fragment and returns
// the affected-row count, or -1 on failure. Zero means no rows matched.
func (s *Store) Update(name string, set map[string]any, where string, params []any) int64 {
	tableName, ok := s.safeName("table", name)
	if !ok {
		return -1
	}
	if len(set) == 0 {
		s.logger.Error("refusing to update with empty set clause", zap.String("table", tableName))
		return -1
	}

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	values := make([]any, 0, len(keys)+len(params))
	for _, k := range keys {
		colName, ok := s.safeName("column", k)
		if !ok {
			return -1
		}
		clauses = append(clauses, colName+" = ?")
		values = append(values, set[k])
	}
	values = append(values, params...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", tableName, strings.Join(clauses, ", "), where)
	query = s.rebind(query)

	res := s.db.Exec(query, values...)
	if res.Error != nil {
		s.logger.Error("failed to update table",
			zap.String("table", tableName), zap.String("query", query), zap.Error(res.Error))
		return -1
	}
	return res.RowsAffected
}

// Delete removes rows matching the where fragment and returns the affected
// count, or -1 on failure.
func (s *Store) Delete(name string, where string, params []any) int64 {
	tableName, ok := s.safeName("table", name)
	if !ok {
		return -1
	}

	query := s.rebind(fmt.Sprintf("DELETE FROM %s WHERE %s", tableName, where))
	res := s.db.Exec(query, params...)
	if res.Error != nil {
		s.logger.Error("failed to delete from table",
			zap.String("table", tableName), zap.String("query", query), zap.Error(res.Error))
		return -1
	}
	return res.RowsAffected
}

// ColumnNames introspects the live table and returns its columns in
// definition order. This, not any stored snapshot, is the authoritative shape
// the CRUD layer reconciles payloads against. Failure returns an empty slice.
func (s *Store) ColumnNames(name string) []string {
	tableName, ok := s.safeName("table", name)
	if !ok {
		return []string{}
	}

	var names []string
	var err error
	switch s.dialect() {
	case "postgres":
		err = s.db.Raw(
			"SELECT column_name FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position",
			tableName,
		).Scan(&names).Error
	default:
		var cols []struct {
			Name string `gorm:"column:name"`
		}
		err = s.db.Raw("PRAGMA table_info(" + tableName + ")").Scan(&cols).Error
		for _, col := range cols {
			names = append(names, col.Name)
		}
	}
	if err != nil {
		s.logger.Error("failed to introspect table columns",
			zap.String("table", tableName), zap.Error(err))
		return []string{}
	}
	if names == nil {
		names = []string{}
	}
	return names
}

// TableExists checks the backend catalog for the table.
func (s *Store) TableExists(name string) bool {
	tableName, ok := s.safeName("table", name)
	if !ok {
		return false
	}

	var count int64
	var err error
	switch s.dialect() {
	case "postgres":
		err = s.db.Raw(
			"SELECT count(*) FROM information_schema.tables WHERE table_name = $1",
			tableName,
		).Scan(&count).Error
	default:
		err = s.db.Raw(
			"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
			tableName,
		).Scan(&count).Error
	}
	if err != nil {
		s.logger.Error("failed to check table existence",
			zap.String("table", tableName), zap.Error(err))
		return false
	}
	return count > 0
}

// portableType papers over the one type-string difference between the
// dialects: the inference contract speaks SQLite, where the id column is
// INTEGER PRIMARY KEY AUTOINCREMENT. Postgres spells that BIGSERIAL.
func (s *Store) portableType(sqlType string) string {
	if s.dialect() == "postgres" &&
		strings.EqualFold(strings.TrimSpace(sqlType), "INTEGER PRIMARY KEY AUTOINCREMENT") {
		return "BIGSERIAL PRIMARY KEY"
	}
	return sqlType
}

// rebind rewrites ? placeholders to $1..$n for postgres. Question marks
// inside single-quoted literals are left alone.
func (s *Store) rebind(query string) string {
	if s.dialect() != "postgres" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inLiteral := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inLiteral = !inLiteral
			b.WriteByte(c)
		case c == '?' && !inLiteral:
			n++
			fmt.Fprintf(&b, "$%d", n)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
