// Package lock provides the simulated PIN-entry door lock for SimLock.
//
// The package owns two pieces of state:
//
//   - UserRegistry: the authorised users, keyed by slot (0-9) and kept in
//     insertion order.
//   - Device: the lock itself. It owns the locked flag and exactly one
//     UserRegistry, exposes both as host-observable properties, and applies
//     the addUser, removeUser and setPinCode operations to the registry.
//
// # Architecture
//
//	┌──────────────┐     ┌──────────────────┐     ┌──────────────┐
//	│  Device host │────▶│ action.Dispatcher│────▶│ lock.Device  │
//	│ (api/bridge) │     │ (single writer)  │     │  └ Registry  │
//	└──────────────┘     └──────────────────┘     └──────────────┘
//	        ▲                                            │
//	        └──────────── property change events ────────┘
//
// Operations on a slot that holds no user are no-ops, never errors. The only
// error the registry returns is ErrInvalidSlot for a slot outside 0-9, which
// also bounds the registry at MaxUsers entries.
//
// # Thread Safety
//
// Device and UserRegistry are safe for concurrent use. Writers are serialised
// by a mutex; readers receive deep copies.
//
// # Usage
//
//	dev := lock.NewDevice()
//	dev.SetLogger(log)
//	dev.OnPropertyChange(func(name string, value any) { ... })
//
//	_ = dev.AddUser(lock.User{SlotID: 3, PIN: "1234"})
//	users := dev.Users()
package lock
