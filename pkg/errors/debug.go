package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrorDump is the flattened view of an error that request logging and the
// non-production error envelope consume.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`
	Gorm       string   `json:"gorm,omitempty"`
	DB         *DBError `json:"db,omitempty"`
}

// DBError carries the driver level fields of a Postgres failure.
type DBError struct {
	Driver     string `json:"driver"`
	SQLState   string `json:"sqlstate"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Fields renders the dump as structured log fields.
func (d ErrorDump) Fields() map[string]any {
	out := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if d.Gorm != "" {
		out["gorm_error"] = d.Gorm
	}
	if d.DB != nil {
		out["db_driver"] = d.DB.Driver
		out["db_sqlstate"] = d.DB.SQLState
		out["db_constraint"] = d.DB.Constraint
		out["db_table"] = d.DB.Table
		out["db_column"] = d.DB.Column
		out["db_detail"] = d.DB.Detail
		out["db_message"] = d.DB.Message
	}
	return out
}

var gormSentinels = []struct {
	err  error
	name string
}{
	{gorm.ErrRecordNotFound, "record_not_found"},
	{gorm.ErrDuplicatedKey, "duplicated_key"},
	{gorm.ErrForeignKeyViolated, "foreign_key_violated"},
	{gorm.ErrInvalidTransaction, "invalid_transaction"},
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	for _, s := range gormSentinels {
		if errors.Is(err, s.err) {
			d.Gorm = s.name
			break
		}
	}
	d.DB = dbError(err)
	return d
}

func dbError(err error) *DBError {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &DBError{
			Driver:     "pgx",
			SQLState:   pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &DBError{
			Driver:     "pq",
			SQLState:   string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}
