package lock

import (
	"fmt"
	"sync"
)

// UserRegistry holds the lock's authorised users, at most one per slot,
// in insertion order.
//
// Operations on a slot with no user are no-ops rather than errors: remote
// commands may arrive out of order, and a removeUser for a slot that was
// never populated leaves the registry exactly as it was.
//
// All public methods are thread-safe.
type UserRegistry struct {
	mu    sync.RWMutex
	users []User
}

// NewUserRegistry creates an empty registry.
func NewUserRegistry() *UserRegistry {
	return &UserRegistry{
		users: make([]User, 0, MaxUsers),
	}
}

// indexOf returns the position of the user in slot, or -1.
// Caller must hold r.mu.
func (r *UserRegistry) indexOf(slot SlotID) int {
	for i := range r.users {
		if r.users[i].SlotID == slot {
			return i
		}
	}
	return -1
}

// Upsert stores user in its slot. An existing user in that slot is replaced
// as a whole, keeping its position; otherwise the user is appended.
func (r *UserRegistry) Upsert(user User) error {
	if err := ValidateSlot(user.SlotID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := user.Clone()
	if i := r.indexOf(user.SlotID); i >= 0 {
		r.users[i] = stored
		return nil
	}
	r.users = append(r.users, stored)
	return nil
}

// Remove deletes the user in slot. An empty slot is left untouched.
func (r *UserRegistry) Remove(slot SlotID) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(slot)
	if i < 0 {
		return nil
	}
	r.users = append(r.users[:i], r.users[i+1:]...)
	return nil
}

// SetPin replaces only the PIN of the user in slot. An empty slot is left
// untouched.
func (r *UserRegistry) SetPin(slot SlotID, pin string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(slot); i >= 0 {
		r.users[i].PIN = pin
	}
	return nil
}

// Find returns a copy of the user in slot.
func (r *UserRegistry) Find(slot SlotID) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(slot); i >= 0 {
		return r.users[i].Clone(), true
	}
	return User{}, false
}

// Snapshot returns a deep copy of all users in insertion order.
// The result is never nil.
func (r *UserRegistry) Snapshot() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]User, len(r.users))
	for i := range r.users {
		out[i] = r.users[i].Clone()
	}
	return out
}

// Len returns the number of stored users.
func (r *UserRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// String implements fmt.Stringer without exposing PINs.
func (r *UserRegistry) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slots := make([]SlotID, len(r.users))
	for i := range r.users {
		slots[i] = r.users[i].SlotID
	}
	return fmt.Sprintf("UserRegistry%v", slots)
}
