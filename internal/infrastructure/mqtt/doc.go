// Package mqtt connects the dialogue service to the Gray Logic MQTT bus.
//
// The service uses the bus three ways:
//   - publishing device commands on graylogic/command/{domain}/{device}
//   - following retained device state on graylogic/state/+/+
//   - reloading the catalog when graylogic/inventory/changed fires
//
// Connection handling follows the rest of Gray Logic: auto-reconnect with
// backoff, subscriptions replayed after reconnect, and a retained status on
// graylogic/dialogue/status with a Last Will so other services notice when
// the dialogue service disappears.
//
// # Security Considerations
//
//   - Enable TLS (mqtt.broker.tls) for anything beyond a local broker
//   - Set the password via GRAYLOGIC_MQTT_PASSWORD, not the config file
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllStates(), 1,
//	    func(topic string, payload []byte) error {
//	        _, domain, device, _ := mqtt.ParseDeviceTopic(topic)
//	        log.Printf("%s %s: %s", domain, device, payload)
//	        return nil
//	    })
package mqtt
