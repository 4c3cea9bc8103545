package lock

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Device.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// PropertyObserver is called after a property value changes.
// value is a copy; observers may retain it.
type PropertyObserver func(name string, value any)

// Device is a simulated PIN-entry door lock.
//
// It owns the lock state and its UserRegistry. Actions never touch the
// locked flag; only the host changes it through SetLocked or SetProperty.
type Device struct {
	mu       sync.RWMutex
	locked   bool
	registry *UserRegistry

	obsMu     sync.RWMutex
	observers []PropertyObserver

	logger Logger
}

// NewDevice creates a locked device with an empty registry.
func NewDevice() *Device {
	return &Device{
		locked:   true,
		registry: NewUserRegistry(),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the device.
func (d *Device) SetLogger(logger Logger) {
	d.logger = logger
}

// OnPropertyChange registers fn to be called after every property change.
// Observers run synchronously on the goroutine that made the change,
// after all device locks are released.
func (d *Device) OnPropertyChange(fn PropertyObserver) {
	d.obsMu.Lock()
	d.observers = append(d.observers, fn)
	d.obsMu.Unlock()
}

func (d *Device) notify(name string, value any) {
	d.obsMu.RLock()
	observers := make([]PropertyObserver, len(d.observers))
	copy(observers, d.observers)
	d.obsMu.RUnlock()

	for _, fn := range observers {
		fn(name, value)
	}
}

// Locked reports whether the lock is engaged.
func (d *Device) Locked() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.locked
}

// SetLocked engages or releases the lock.
func (d *Device) SetLocked(locked bool) {
	d.mu.Lock()
	changed := d.locked != locked
	d.locked = locked
	d.mu.Unlock()

	d.logger.Info("lock state set", "locked", locked, "changed", changed)
	d.notify(PropertyLocked, locked)
}

// Users returns a snapshot of the registry in insertion order.
func (d *Device) Users() []User {
	return d.registry.Snapshot()
}

// User returns a copy of the user in slot.
func (d *Device) User(slot SlotID) (User, bool) {
	return d.registry.Find(slot)
}

// AddUser stores user in its slot, replacing any existing user there.
func (d *Device) AddUser(user User) error {
	if err := d.registry.Upsert(user); err != nil {
		return fmt.Errorf("adding user: %w", err)
	}
	d.logger.Debug("user stored", "slot", int(user.SlotID), "count", d.registry.Len())
	d.notify(PropertyUsers, d.registry.Snapshot())
	return nil
}

// RemoveUser deletes the user in slot. Removing an empty slot succeeds.
func (d *Device) RemoveUser(slot SlotID) error {
	if err := d.registry.Remove(slot); err != nil {
		return fmt.Errorf("removing user: %w", err)
	}
	d.logger.Debug("user removed", "slot", int(slot), "count", d.registry.Len())
	d.notify(PropertyUsers, d.registry.Snapshot())
	return nil
}

// SetPinCode changes the PIN of the user in slot. An empty slot is ignored.
func (d *Device) SetPinCode(slot SlotID, pin string) error {
	if err := d.registry.SetPin(slot, pin); err != nil {
		return fmt.Errorf("setting pin: %w", err)
	}
	d.logger.Debug("pin updated", "slot", int(slot))
	d.notify(PropertyUsers, d.registry.Snapshot())
	return nil
}

// Property returns the current value of the named property.
// Values are read fresh on every call.
func (d *Device) Property(name string) (any, error) {
	switch name {
	case PropertyLocked:
		return d.Locked(), nil
	case PropertyUsers:
		return d.Users(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
}

// Properties returns every property value keyed by name.
func (d *Device) Properties() map[string]any {
	return map[string]any{
		PropertyLocked: d.Locked(),
		PropertyUsers:  d.Users(),
	}
}

// SetProperty applies a host property write. Only locked is writable.
func (d *Device) SetProperty(name string, raw json.RawMessage) error {
	switch name {
	case PropertyLocked:
		var locked bool
		if err := json.Unmarshal(raw, &locked); err != nil {
			return fmt.Errorf("%w: locked must be a boolean", ErrInvalidPropertyValue)
		}
		d.SetLocked(locked)
		return nil
	case PropertyUsers:
		return fmt.Errorf("%w: %q", ErrReadOnlyProperty, name)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProperty, name)
	}
}
