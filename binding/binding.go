package binding

import (
	"github.com/hhkbp2/oltpbench"
)

// AddBindings registers the database bindings of this package.
func AddBindings() {
	oltpbench.Databases["mysql"] = func() oltpbench.DB {
		return NewMysqlDB()
	}
}
