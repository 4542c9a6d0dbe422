package mqttproto

import "strings"

// TopicMatches applies the MQTT wildcard matching rules: "+" matches
// exactly one topic level, "#" matches the remainder of the topic and
// must be the final filter segment. This reimplements internal/bridge's
// matching logic in a bool-only form (no capture) to keep this package
// independent of the bridge engine.
func TopicMatches(filter, topic string) bool {
	filterSegs := strings.Split(filter, "/")
	topicSegs := strings.Split(topic, "/")

	for i, fs := range filterSegs {
		if fs == "#" {
			return true
		}
		if i >= len(topicSegs) {
			return false
		}
		if fs != "+" && fs != topicSegs[i] {
			return false
		}
	}
	return len(filterSegs) == len(topicSegs)
}
