package sqlxrepos

import (
	"database/sql/driver"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/sanaa/core"
)

func getExec(db core.DBExecutor, exec ...core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 && exec[0] != nil {
		return exec[0]
	}
	return db
}

func newID() string {
	return uuid.NewString()
}

// toSQL builds a squirrel query for the executor's bind type.
func toSQL(exec core.DBExecutor, b sq.Sqlizer) (string, []interface{}, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return "", nil, errors.Wrap(err, "building query")
	}
	return exec.Rebind(q), args, nil
}

// jsonList stores a list of strings in a TEXT column as a JSON array.
type jsonList []string

func (l *jsonList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = jsonList{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("jsonList: cannot scan %T", src)
	}
	if len(data) == 0 {
		*l = jsonList{}
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.Wrap(err, "jsonList")
	}
	if items == nil {
		items = []string{}
	}
	*l = items
	return nil
}

func (l jsonList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
