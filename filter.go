package synapse

// FilterFunc decides whether a subscription receives an event. Returning
// false skips the handler without invoking or removing it.
type FilterFunc func(ev Event) bool

// FilterAnd returns a filter that matches when all filters match.
func FilterAnd(filters ...FilterFunc) FilterFunc {
	return func(ev Event) bool {
		for _, f := range filters {
			if !f(ev) {
				return false
			}
		}
		return true
	}
}

// FilterOr returns a filter that matches when any filter matches.
func FilterOr(filters ...FilterFunc) FilterFunc {
	return func(ev Event) bool {
		for _, f := range filters {
			if f(ev) {
				return true
			}
		}
		return false
	}
}

// FilterNot returns a filter that inverts another filter.
func FilterNot(f FilterFunc) FilterFunc {
	return func(ev Event) bool {
		return !f(ev)
	}
}

// FilterAll matches every event.
func FilterAll() FilterFunc {
	return func(Event) bool { return true }
}

// FilterNone matches no event.
func FilterNone() FilterFunc {
	return func(Event) bool { return false }
}

// FilterFor narrows delivery to events of kind E satisfying pred. Events
// of other kinds never match. A nil pred matches every E.
func FilterFor[E Event](pred func(E) bool) FilterFunc {
	return func(ev Event) bool {
		e, ok := ev.(E)
		if !ok {
			return false
		}
		return pred == nil || pred(e)
	}
}
