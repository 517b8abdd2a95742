package core

import "github.com/google/uuid"

// Ref is the opaque public reference assigned to every entity at creation.
// Stores also keep an internal sequence id; callers only ever see the Ref.
type Ref string

// NewRef generates a fresh reference.
func NewRef() Ref {
	return Ref(uuid.NewString())
}

func (r Ref) String() string { return string(r) }

// Valid reports whether r parses as a UUID. Handlers use this to reject
// malformed references before hitting the store.
func (r Ref) Valid() bool {
	_, err := uuid.Parse(string(r))
	return err == nil
}
