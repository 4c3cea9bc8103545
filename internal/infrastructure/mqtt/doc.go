// Package mqtt provides MQTT client connectivity for the SimLock device host.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support, restored after reconnect
//   - Last Will and Testament (LWT) for offline detection
//   - OnConnect hooks that re-publish lock state after a reconnect
//
// # Topics
//
//	graylogic/lock/{thing}/action/{name}    host → lock   action requests
//	graylogic/lock/{thing}/ack/{name}       lock → host   action acks
//	graylogic/lock/{thing}/property/{name}  lock → host   retained values
//	graylogic/lock/{thing}/status           lock → host   retained online/offline
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Thing.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.LockProperty(cfg.Thing.ID, "locked")
//	err = client.PublishJSON(topic, true, true)
package mqtt
