package workflow

import (
	"errors"
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	dup := &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"}
	if !isDuplicateKeyErr(dup) {
		t.Fatal("1062 must classify as duplicate key")
	}
	if !isDuplicateKeyErr(errors.Join(errors.New("create failed"), dup)) {
		t.Fatal("wrapped 1062 must classify as duplicate key")
	}

	other := &mysqlDriver.MySQLError{Number: 1213, Message: "Deadlock found"}
	if isDuplicateKeyErr(other) {
		t.Fatal("other mysql errors must not classify as duplicate key")
	}
	if isDuplicateKeyErr(errors.New("connection reset")) {
		t.Fatal("plain errors must not classify as duplicate key")
	}
	if isDuplicateKeyErr(nil) {
		t.Fatal("nil must not classify as duplicate key")
	}
}
