package script

import (
	"github.com/aarzilli/golua/lua"
	"github.com/sirupsen/logrus"

	"github.com/srg/cscbridge/internal/sensor"
)

// registerAPI exposes the sensor functions to the script. Each function takes
// numbers and returns nothing; bad arguments are logged and the call is ignored.
func (s *Source) registerAPI() {
	s.register("wheel", 2, func(args []float64) {
		s.target.Apply(sensor.WheelEvent{EstTimestamp: s.now, CumulativeRevolutions: int64(args[0]), EventTime: args[1]})
	})
	s.register("crank", 2, func(args []float64) {
		s.target.Apply(sensor.CrankEvent{EstTimestamp: s.now, CumulativeRevolutions: int64(args[0]), EventTime: args[1]})
	})
	s.register("heart_rate", 1, func(args []float64) {
		s.target.Apply(sensor.HeartRateEvent{EstTimestamp: s.now, BPM: int(args[0])})
	})
	s.register("speed", 1, func(args []float64) {
		s.target.Apply(sensor.StrideSpeedEvent{EstTimestamp: s.now, Speed: args[0]})
	})
	s.register("strides", 1, func(args []float64) {
		s.target.Apply(sensor.StrideCountEvent{EstTimestamp: s.now, Cumulative: int64(args[0])})
	})
	s.register("distance", 1, func(args []float64) {
		s.target.Apply(sensor.StrideDistanceEvent{EstTimestamp: s.now, Distance: args[0]})
	})

	s.state.PushGoFunction(func(L *lua.State) int {
		if L.GetTop() < 2 || !L.IsString(1) || !L.IsString(2) {
			s.logger.Warn("state(channel, name) expects two strings")
			return 0
		}
		kind, err := sensor.ParseKind(L.ToString(1))
		if err != nil {
			s.logger.WithError(err).Warn("state() ignored")
			return 0
		}
		s.target.SetState(kind, L.ToString(2))
		return 0
	})
	s.state.SetGlobal("state")
}

func (s *Source) register(name string, nargs int, fn func(args []float64)) {
	s.state.PushGoFunction(func(L *lua.State) int {
		if L.GetTop() < nargs {
			s.logger.WithFields(logrus.Fields{"function": name, "want": nargs, "got": L.GetTop()}).Warn("Script call ignored: missing arguments")
			return 0
		}
		args := make([]float64, nargs)
		for i := range args {
			if !L.IsNumber(i + 1) {
				s.logger.WithFields(logrus.Fields{"function": name, "arg": i + 1}).Warn("Script call ignored: argument is not a number")
				return 0
			}
			args[i] = L.ToNumber(i + 1)
		}
		fn(args)
		return 0
	})
	s.state.SetGlobal(name)
}
