package ecs

// Query is a conjunction of optional predicates. Nil / empty fields are
// ignored; the zero Query matches every registered entity.
type Query struct {
	Tags   []string
	Active *bool
	Name   *string
}

// Ptr is a small helper for filling Query's optional fields.
func Ptr[T any](v T) *T { return &v }

// Matches reports whether e satisfies every predicate of q.
func (q Query) Matches(e *Entity) bool {
	if len(q.Tags) > 0 && !e.HasTags(q.Tags...) {
		return false
	}
	if q.Active != nil && e.active != *q.Active {
		return false
	}
	if q.Name != nil && e.name != *q.Name {
		return false
	}
	return true
}

// Query returns the registered entities matching q. With tags it walks the
// smallest tag bucket and checks the rest (ordered by ID); without tags it
// scans everything in registration order.
func (r *Registry) Query(q Query) []*Entity {
	var out []*Entity
	if len(q.Tags) > 0 {
		for _, e := range r.smallestBucket(q.Tags) {
			if q.Matches(e) {
				out = append(out, e)
			}
		}
		sortByID(out)
		return out
	}
	for _, e := range r.list {
		if q.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// CountWhere reports how many entities match q without building a slice.
func (r *Registry) CountWhere(q Query) int {
	n := 0
	for _, e := range r.list {
		if q.Matches(e) {
			n++
		}
	}
	return n
}
