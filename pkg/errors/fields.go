package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err into structured log fields: the outer code, the
// unwrap chain and, when a Postgres error from either pgx or lib/pq is in the
// chain, its SQLSTATE and constraint metadata. Empty values are omitted.
func LogFields(err error) map[string]any {
	if err == nil {
		return nil
	}
	fields := map[string]any{"error": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = string(typed.code)
		if d, ok := typed.details.(map[string]any); ok {
			if step, ok := d["step"]; ok {
				fields["step"] = step
			}
		}
	}

	var chain []string
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T", e))
	}
	if len(chain) > 1 {
		fields["error_chain"] = chain
	}

	var pg map[string]string
	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case stdErrors.As(err, &pgxErr):
		pg = map[string]string{
			"pg_code":       pgxErr.Code,
			"pg_message":    pgxErr.Message,
			"pg_detail":     pgxErr.Detail,
			"pg_table":      pgxErr.TableName,
			"pg_column":     pgxErr.ColumnName,
			"pg_constraint": pgxErr.ConstraintName,
		}
	case stdErrors.As(err, &pqErr):
		pg = map[string]string{
			"pg_code":       string(pqErr.Code),
			"pg_message":    pqErr.Message,
			"pg_detail":     pqErr.Detail,
			"pg_table":      pqErr.Table,
			"pg_column":     pqErr.Column,
			"pg_constraint": pqErr.Constraint,
		}
	}
	for k, v := range pg {
		if v != "" {
			fields[k] = v
		}
	}
	return fields
}
