package grading

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithParallelism bounds how many subjects or students are processed
// concurrently within a stage. Values below 2 keep the engine sequential.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithSortOrder sets the order in which Process returns students.
func WithSortOrder(order SortOrder) Option {
	return func(e *Engine) {
		if order != "" {
			e.order = order
		}
	}
}
