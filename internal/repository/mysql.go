package repository

import (
    "errors"

    "github.com/go-sql-driver/mysql"
)

// mysqlDuplicateKey is the server error number for a unique key violation.
const mysqlDuplicateKey = 1062

// isDuplicate reports whether err is a MySQL duplicate key error.
func isDuplicate(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == mysqlDuplicateKey
}

// rowsAffected is the part of sql.Result used by affectedOne.
type rowsAffected interface {
    RowsAffected() (int64, error)
}

// affectedOne maps a zero-row update/delete to missing.  The DSN must set
// clientFoundRows=true so that an UPDATE writing identical values still
// reports the matched row.
func affectedOne(res rowsAffected, missing error) error {
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return missing
    }
    return nil
}
