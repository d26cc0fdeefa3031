// Package transport carries device commands and device state over the
// Gray Logic MQTT bus.
//
// MQTTDispatcher publishes one CommandMessage per adjust.Command on
// graylogic/command/{domain}/{device_id}. StateCache follows the retained
// StateMessages on graylogic/state/+/+ and answers adjust.StateReader calls
// from memory. InventoryWatcher reloads the catalog whenever a message lands
// on graylogic/inventory/changed.
//
// All three depend on the small Publisher/Subscriber interfaces below, which
// *mqtt.Client satisfies, so they can be tested without a broker.
package transport
