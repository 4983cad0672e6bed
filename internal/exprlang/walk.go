package exprlang

// Walk calls visit for expr and every expression nested inside it (Case
// branches/else, Function args, BinaryOp/UnaryOp operands, Aggregate
// expr/filter), mirroring the nested walk internal/duckdbsql/walk.go
// performs over its larger SQL AST. visit returning false stops the
// traversal into expr's children (but siblings already enqueued continue).
func Walk(expr Expr, visit func(Expr) bool) {
	if expr == nil {
		return
	}
	if !visit(expr) {
		return
	}
	switch e := expr.(type) {
	case *Column, *Literal, *MeasureRef:
		// leaves
	case *Case:
		for _, b := range e.Branches {
			Walk(b.Cond, visit)
			Walk(b.Then, visit)
		}
		Walk(e.Else, visit)
	case *BinaryOp:
		Walk(e.Left, visit)
		Walk(e.Right, visit)
	case *UnaryOp:
		Walk(e.Expr, visit)
	case *Function:
		for _, a := range e.Args {
			Walk(a, visit)
		}
	case *Aggregate:
		Walk(e.Expr, visit)
		Walk(e.Filter, visit)
	case *InExpr:
		Walk(e.Expr, visit)
		for _, item := range e.List {
			Walk(item, visit)
		}
	case *LikeExpr:
		Walk(e.Expr, visit)
		Walk(e.Pattern, visit)
	}
}

// Columns returns every Column node reachable from expr, in visitation
// order (duplicates included).
func Columns(expr Expr) []*Column {
	var out []*Column
	Walk(expr, func(e Expr) bool {
		if c, ok := e.(*Column); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}

// MeasureRefs returns every MeasureRef node reachable from expr.
func MeasureRefs(expr Expr) []*MeasureRef {
	var out []*MeasureRef
	Walk(expr, func(e Expr) bool {
		if m, ok := e.(*MeasureRef); ok {
			out = append(out, m)
		}
		return true
	})
	return out
}

// ContainsAggregate reports whether expr contains an Aggregate node
// anywhere in its tree — used to reject aggregates nested inside a
// dimension expression or a filter.
func ContainsAggregate(expr Expr) bool {
	found := false
	Walk(expr, func(e Expr) bool {
		if _, ok := e.(*Aggregate); ok {
			found = true
			return false
		}
		return true
	})
	return found
}
