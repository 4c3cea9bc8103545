// Package api is the HTTP and websocket device host for SimLock.
//
// It exposes the lock as a Web Thing: a Thing Description at "/", property
// resources under /properties, and action resources under /actions. Action
// requests are handed to the action dispatcher and answered with the
// created action record; clients follow its href or listen on the
// websocket for actionStatus messages.
//
//	GET    /                       Thing Description
//	GET    /properties             all property values
//	GET    /properties/{name}      one property value
//	PUT    /properties/{name}      write a property (locked only)
//	GET    /actions                every recorded action
//	POST   /actions                request an action {"addUser":{"input":{...}}}
//	GET    /actions/{name}         actions of one kind
//	POST   /actions/{name}         request an action of that kind
//	GET    /actions/{name}/{id}    one action record
//	DELETE /actions/{name}/{id}    cancel a queued action or forget a finished one
//	GET    /ws                     websocket (propertyStatus, actionStatus)
//	GET    /audit                  persisted action log, when configured
//	GET    /health                 liveness and optional component checks
//	GET    /metrics                Prometheus exposition
//
// The server follows the same lifecycle as the other components:
//
//	srv, err := api.New(deps)
//	srv.Start(ctx)
//	defer srv.Close()
package api
