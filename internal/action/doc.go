// Package action turns remote action requests into lock operations.
//
// A Request names one of the lock's actions (addUser, removeUser, setPinCode)
// and carries its input as raw JSON. The Dispatcher decodes and validates the
// input synchronously, records an Action with a UUID, and queues it. A single
// worker applies queued actions to the lock one at a time in submission order,
// so hosts may submit from any goroutine without coordinating.
//
// # Lifecycle
//
//	created ──▶ pending ──▶ completed
//	   │                 └─▶ failed
//	   └──▶ cancelled
//
// Actions are fire-and-forget: completion says the operation ran, not that the
// target user existed.
//
// # Usage
//
//	d := action.NewDispatcher(dev, action.Config{QueueSize: 64, MaxHistory: 100})
//	d.SetLogger(log)
//	d.Start(ctx)
//	defer d.Close()
//
//	a, err := d.Perform(ctx, action.Request{
//	    Name:  action.AddUser,
//	    Input: json.RawMessage(`{"userId": 3, "pin": "1234"}`),
//	})
package action
