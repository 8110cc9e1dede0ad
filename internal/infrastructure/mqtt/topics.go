package mqtt

import "fmt"

// TopicPrefixSystem is the base for server lifecycle topics.
const TopicPrefixSystem = "spaces/system"

// Topics builds the fixed MQTT topics owned by the server. Event topics are
// derived from the configured prefix by the events package.
type Topics struct{}

// SystemStatus returns the retained online/offline status topic.
//
// Example: spaces/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// EventWildcard returns a subscription filter matching every event published
// under prefix.
//
// Example: spaces/events/#
func (Topics) EventWildcard(prefix string) string {
	return fmt.Sprintf("%s/#", prefix)
}
