package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every Gray Logic topic.
const TopicPrefix = "graylogic"

// Topics builds the topics the dialogue service publishes and listens on.
//
// Device topics use the flat scheme graylogic/{category}/{domain}/{device}:
//
//	mqtt.Topics{}.Command("light", "light.lamp1")
//	// graylogic/command/light/light.lamp1
type Topics struct{}

// Command is where device commands are published.
func (Topics) Command(domain, deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, domain, deviceID)
}

// State is where a bridge publishes a device's retained state.
func (Topics) State(domain, deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, domain, deviceID)
}

// AllStates matches every device state topic.
//
// Pattern: graylogic/state/+/+
func (Topics) AllStates() string {
	return TopicPrefix + "/state/+/+"
}

// InventoryChanged is published when the device inventory has been edited
// and should be reloaded.
func (Topics) InventoryChanged() string {
	return TopicPrefix + "/inventory/changed"
}

// ServiceStatus carries the retained online/offline status of the service.
func (Topics) ServiceStatus() string {
	return TopicPrefix + "/dialogue/status"
}

// ConversationEvent carries dialogue outcomes for one conversation.
func (Topics) ConversationEvent(conversationID string) string {
	return fmt.Sprintf("%s/dialogue/conversation/%s", TopicPrefix, conversationID)
}

// ParseDeviceTopic splits graylogic/{category}/{domain}/{device} into its
// category, domain and device id.
func ParseDeviceTopic(topic string) (category, domain, deviceID string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix {
		return "", "", "", false
	}
	if parts[1] == "" || parts[2] == "" || parts[3] == "" {
		return "", "", "", false
	}
	return parts[1], parts[2], parts[3], true
}
