package textfmt

import (
	mast "github.com/google/mangle/ast"

	iast "idpgo/internal/ast"
)

func constNumber(n int64) iast.DomainElement  { return mast.Number(n) }
func constFloat(f float64) iast.DomainElement { return mast.Float64(f) }
func constString(s string) iast.DomainElement { return mast.String(s) }
