package bridge

import (
	"github.com/srg/cscbridge/internal/sensor"
)

// ChannelStatus is the state of one sensor channel.
type ChannelStatus struct {
	Channel    string `json:"channel"`
	State      string `json:"state"`
	Reported   bool   `json:"reported"`
	LastUpdate int64  `json:"last_update,omitempty"`
}

// Status is a point-in-time view of the service.
type Status struct {
	Published    []string        `json:"published"`
	Active       []string        `json:"active"`
	Subscribers  int             `json:"subscribers"`
	Ticks        uint64          `json:"ticks"`
	PublishError string          `json:"publish_error,omitempty"`
	Channels     []ChannelStatus `json:"channels"`
	Reading      sensor.Reading  `json:"reading"`
}

// Status collects the current state of every component.
func (s *Service) Status() Status {
	st := Status{
		Subscribers: s.registry.Len(),
		Ticks:       s.notifier.Ticks(),
		Reading:     s.hub.Read(),
	}

	for _, def := range s.table.Definitions() {
		if s.server.Published(def.ID) {
			st.Published = append(st.Published, def.ID.String())
		}
	}
	for _, p := range s.server.ActiveProfiles() {
		st.Active = append(st.Active, p.Definition.ID.String())
	}

	s.mu.Lock()
	if s.publishErr != nil {
		st.PublishError = s.publishErr.Error()
	}
	s.mu.Unlock()

	for _, k := range sensor.Kinds() {
		st.Channels = append(st.Channels, ChannelStatus{
			Channel:    k.String(),
			State:      s.hub.State(k),
			Reported:   s.hub.Reported(k),
			LastUpdate: s.hub.LastUpdate(k),
		})
	}
	return st
}
