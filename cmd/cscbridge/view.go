package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/srg/cscbridge/internal/events"
	"github.com/srg/cscbridge/internal/sensor"
)

// eventView prints the display event stream, one line per event.
type eventView struct {
	mu  sync.Mutex
	out io.Writer

	timeColor  *color.Color
	stateColor *color.Color
	valueColor *color.Color
	peerColor  *color.Color
	errColor   *color.Color
}

func newEventView(out io.Writer, colored bool) *eventView {
	v := &eventView{
		out:        out,
		timeColor:  color.New(color.Faint),
		stateColor: color.New(color.FgYellow),
		valueColor: color.New(color.FgGreen),
		peerColor:  color.New(color.FgCyan),
		errColor:   color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{v.timeColor, v.stateColor, v.valueColor, v.peerColor, v.errColor} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return v
}

// Print writes e; it is used as the journal sink and may be called concurrently.
func (v *eventView) Print(e events.Event) {
	line := v.format(e)
	if line == "" {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "%s %s\n", v.timeColor.Sprint(e.Time.Format("15:04:05.000")), line)
}

func (v *eventView) format(e events.Event) string {
	switch e.Kind {
	case events.StateChanged:
		return fmt.Sprintf("%-10s %s", e.Channel, v.stateColor.Sprint(e.State))
	case events.ValueUpdated:
		if e.Reading == nil {
			return ""
		}
		return fmt.Sprintf("%-10s %s", e.Channel, v.valueColor.Sprint(formatReading(e.Channel, *e.Reading)))
	case events.SubscriberChanged:
		verb := "unsubscribed"
		if e.Subscribed {
			verb = "subscribed"
		}
		return fmt.Sprintf("%-10s %s %s", "peer", v.peerColor.Sprint(e.Peer), verb)
	case events.ProfilePublished:
		if e.Error != "" {
			return fmt.Sprintf("%-10s %s %s", "profile", e.Profile, v.errColor.Sprint("failed: "+e.Error))
		}
		return fmt.Sprintf("%-10s %s published", "profile", e.Profile)
	}
	return ""
}

func formatReading(channel string, r sensor.Reading) string {
	kind, err := sensor.ParseKind(channel)
	if err != nil {
		return channel
	}
	switch kind {
	case sensor.Speed:
		return fmt.Sprintf("wheel revs=%d time=%d", r.WheelRevolutions, r.WheelEventTime)
	case sensor.Cadence:
		return fmt.Sprintf("crank revs=%d time=%d", r.CrankRevolutions, r.CrankEventTime)
	case sensor.HeartRate:
		return fmt.Sprintf("%d bpm", r.HeartRate)
	case sensor.Stride:
		return fmt.Sprintf("%.2f m/s %d spm %d m", r.Speed, r.StridesPerMinute, r.StrideDistance)
	}
	return channel
}
