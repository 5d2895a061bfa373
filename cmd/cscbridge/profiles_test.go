package main

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/srg/cscbridge/internal/testutils"
)

type ProfilesTestSuite struct {
	CommandTestSuite
}

func (s *ProfilesTestSuite) TestTable() {
	out, err := s.ExecuteCommand(rootCmd, "profiles")

	s.Require().NoError(err)
	testutils.NewTextAsserter(s.T()).Assert(out, `
ID   NAME                       SERVICE  MEASUREMENT  FEATURE  CHANNELS
csc  Cycling Speed and Cadence  1816     2a5b         2a5c     speed,cadence
rsc  Running Speed and Cadence  1814     2a53         2a54     stride
hr   Heart Rate                 180d     2a37         -        heart_rate
`)
}

func (s *ProfilesTestSuite) TestJSON() {
	out, err := s.ExecuteCommand(rootCmd, "profiles", "--json")

	s.Require().NoError(err)
	testutils.NewJSONAsserter(s.T(), testutils.WithIgnoreExtraKeys(false)).Assert(out, `[
		{"id": "csc", "name": "Cycling Speed and Cadence", "service": "1816", "measurement": "2a5b", "feature": "2a5c", "channels": ["speed", "cadence"]},
		{"id": "rsc", "name": "Running Speed and Cadence", "service": "1814", "measurement": "2a53", "feature": "2a54", "channels": ["stride"]},
		{"id": "hr", "name": "Heart Rate", "service": "180d", "measurement": "2a37", "channels": ["heart_rate"]}
	]`)
}

func TestProfilesTestSuite(t *testing.T) {
	suite.Run(t, new(ProfilesTestSuite))
}
