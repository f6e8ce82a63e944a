package ptr

// T returns a pointer to a copy of v.
func T[V any](v V) *V {
	return &v
}

func String(v string) *string {
	return &v
}

func Int(v int) *int {
	return &v
}

func Bool(v bool) *bool {
	return &v
}

func Float64(v float64) *float64 {
	return &v
}

// From dereferences p, returning the zero value for nil.
func From[V any](p *V) V {
	if p == nil {
		var zero V
		return zero
	}
	return *p
}
