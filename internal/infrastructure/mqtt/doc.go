// Package mqtt publishes server events to an MQTT broker.
//
// The client connects with auto-reconnect, registers a Last Will on
// spaces/system/status so subscribers can detect an unexpected disconnect,
// and publishes retained online/offline status messages. Domain events are
// published by events.MQTTSink through Client.Publish.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.Publish("spaces/events/space.created", payload, 1, false)
//
// TLS should be enabled (cfg.Broker.TLS) whenever the broker is not local.
package mqtt
