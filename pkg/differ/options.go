package differ

// Option is a functional option for configuring Differ.
type Option func(*differ)

// WithIgnoredFields sets fields to leave out of the comparison. The
// reconciliation engine always uses the full field set.
func WithIgnoredFields(fields ...string) Option {
	return func(d *differ) {
		for _, field := range fields {
			d.ignoreFields[field] = true
		}
	}
}
