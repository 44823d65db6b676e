//go:build odbc

package probe

import (
	"errors"

	"github.com/alexbrainman/odbc"
)

func init() {
	odbcState = func(err error) (string, bool) {
		var e *odbc.Error
		if errors.As(err, &e) && len(e.Diag) > 0 {
			return e.Diag[0].State, true
		}
		return "", false
	}
}
