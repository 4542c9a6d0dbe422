package bridge

import "strings"

// matchMapping checks whether msg triggers m and, if so, returns the
// protocol/topic to forward to. For BIDIR mappings a match on either side
// triggers forwarding to the other; any wildcard segments the inbound
// topic matched are substituted positionally into the other side's
// filter so the resolved target topic is always a literal topic.
func matchMapping(m *Mapping, msg Message) (targetProtocol, targetTopic string, ok bool) {
	switch m.Direction {
	case DirectionReverse:
		if msg.Protocol == m.TargetProtocol {
			if caps, match := matchTopic(m.TargetTopic, msg.Topic); match {
				return m.SourceProtocol, resolveTopic(m.SourceTopic, caps), true
			}
		}
	case DirectionBIDIR:
		if msg.Protocol == m.SourceProtocol {
			if caps, match := matchTopic(m.SourceTopic, msg.Topic); match {
				return m.TargetProtocol, resolveTopic(m.TargetTopic, caps), true
			}
		}
		if msg.Protocol == m.TargetProtocol {
			if caps, match := matchTopic(m.TargetTopic, msg.Topic); match {
				return m.SourceProtocol, resolveTopic(m.SourceTopic, caps), true
			}
		}
	default: // DirectionForward
		if msg.Protocol == m.SourceProtocol {
			if caps, match := matchTopic(m.SourceTopic, msg.Topic); match {
				return m.TargetProtocol, resolveTopic(m.TargetTopic, caps), true
			}
		}
	}
	return "", "", false
}

// topicMatches applies MQTT wildcard matching rules: "+" matches exactly
// one topic level, "#" matches the remainder of the topic (must be the
// final filter segment). A filter with no wildcards must match the topic
// exactly.
func topicMatches(filter, topic string) bool {
	_, ok := matchTopic(filter, topic)
	return ok
}

// matchTopic matches topic against filter and, on success, returns the
// ordered list of segments each wildcard ("+" per segment, "#" for the
// remainder) captured from topic.
func matchTopic(filter, topic string) ([]string, bool) {
	filterSegs := strings.Split(filter, "/")
	topicSegs := strings.Split(topic, "/")

	var captures []string
	for i, fs := range filterSegs {
		if fs == "#" {
			captures = append(captures, strings.Join(topicSegs[i:], "/"))
			return captures, true
		}
		if i >= len(topicSegs) {
			return nil, false
		}
		if fs == "+" {
			captures = append(captures, topicSegs[i])
			continue
		}
		if fs != topicSegs[i] {
			return nil, false
		}
	}
	if len(filterSegs) != len(topicSegs) {
		return nil, false
	}
	return captures, true
}

// resolveTopic substitutes captures positionally into filter's wildcard
// segments ("+" and "#"), in order. A filter with no wildcards is
// returned unchanged.
func resolveTopic(filter string, captures []string) string {
	if len(captures) == 0 {
		return filter
	}
	segs := strings.Split(filter, "/")
	out := make([]string, 0, len(segs))
	idx := 0
	for _, seg := range segs {
		if (seg == "+" || seg == "#") && idx < len(captures) {
			out = append(out, captures[idx])
			idx++
			if seg == "#" {
				break
			}
			continue
		}
		out = append(out, seg)
	}
	return strings.Join(out, "/")
}
