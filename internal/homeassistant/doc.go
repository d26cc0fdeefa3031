// Package homeassistant connects the dialogue service to a Home Assistant
// instance.
//
// InventorySource builds the device catalog over the WebSocket API: it
// authenticates with a long-lived access token, reads the area, floor,
// device and entity registries plus the current states, and asks each
// device for its device-automation actions. Entities are exposed unless
// they are hidden, disabled, or explicitly not exposed to conversation
// agents. Only a whitelist of attributes is carried into the catalog.
//
// Dispatcher sends commands through the REST API
// (POST /api/services/{domain}/{service}) and reads state through
// GET /api/states/{entity_id}. Attribute values cross the boundary as
// fractions: brightness (0-255) and the percentage attributes (0-100) are
// scaled on the way in and out.
//
// # Security Considerations
//
// The access token grants full control of Home Assistant. Supply it with
// GRAYLOGIC_HA_TOKEN rather than the config file.
package homeassistant
