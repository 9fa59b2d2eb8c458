package bannerconfig

// Resolver yields a value for a setting, or false when it has nothing to offer.
type Resolver[T any] func() (T, bool)

// Override offers the admin value when one is set.
func Override[T any](p *T) Resolver[T] {
	return func() (T, bool) {
		if p == nil {
			var zero T
			return zero, false
		}
		return *p, true
	}
}

// Default always offers v.
func Default[T any](v T) Resolver[T] {
	return func() (T, bool) { return v, true }
}

// Resolve applies resolvers left to right and returns the first value offered.
func Resolve[T any](resolvers ...Resolver[T]) T {
	for _, r := range resolvers {
		if v, ok := r(); ok {
			return v
		}
	}
	var zero T
	return zero
}
