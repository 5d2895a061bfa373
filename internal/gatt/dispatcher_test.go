package gatt

import (
	"io"
	"testing"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/srg/cscbridge/internal/profile"
)

type DispatcherTestSuite struct {
	suite.Suite
	features   *profile.Registry
	registry   *Registry
	observer   *MockObserver
	dispatcher *Dispatcher
	peer       *MockPeer
}

func (s *DispatcherTestSuite) SetupTest() {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s.features = profile.NewRegistry()
	s.Require().NoError(s.features.Configure(profile.CyclingSpeedCadence, profile.CSCWheelRevolution|profile.CSCCrankRevolution))
	s.registry = NewRegistry()
	s.observer = &MockObserver{}
	s.dispatcher = NewDispatcher(profile.DefaultTable(), s.features, s.registry, s.observer, logger)
	s.peer = NewMockPeer("11:22:33:44:55:66")
}

func (s *DispatcherTestSuite) TestReadCharacteristic() {
	tests := []struct {
		name   string
		uuid   ble.UUID
		status Status
		value  []byte
	}{
		{"csc feature", profile.CSCFeatureUUID, StatusSuccess, []byte{0x03, 0x00}},
		{"rsc feature", profile.RSCFeatureUUID, StatusSuccess, []byte{0x00, 0x00}},
		{"csc measurement is notify only", profile.CSCMeasurementUUID, StatusReadNotPermitted, nil},
		{"hr measurement is notify only", profile.HRMeasurementUUID, StatusReadNotPermitted, nil},
		{"unknown characteristic", ble.UUID16(0x2A19), StatusFailure, nil},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rsp := s.dispatcher.ReadCharacteristic(s.peer, tt.uuid)
			s.Equal(tt.status, rsp.Status)
			s.Equal(tt.value, rsp.Value)
			s.True(rsp.Sent)
		})
	}
}

func (s *DispatcherTestSuite) TestSubscribeLifecycle() {
	s.observer.On("OnSubscriberChanged", s.peer.ID(), true).Once()
	s.observer.On("OnSubscriberChanged", s.peer.ID(), false).Once()

	rsp := s.dispatcher.ReadDescriptor(s.peer, profile.ClientConfigUUID)
	s.Equal(StatusSuccess, rsp.Status)
	s.Equal([]byte{0x00, 0x00}, rsp.Value)

	rsp = s.dispatcher.WriteDescriptor(s.peer, profile.ClientConfigUUID, []byte{0x01, 0x00}, true)
	s.Equal(StatusSuccess, rsp.Status)
	s.True(rsp.Sent)
	s.True(s.registry.IsSubscribed(s.peer.ID()))

	rsp = s.dispatcher.ReadDescriptor(s.peer, profile.ClientConfigUUID)
	s.Equal([]byte{0x01, 0x00}, rsp.Value)

	// second enable does not emit another event
	s.dispatcher.WriteDescriptor(s.peer, profile.ClientConfigUUID, []byte{0x01, 0x00}, false)

	rsp = s.dispatcher.WriteDescriptor(s.peer, profile.ClientConfigUUID, []byte{0x00, 0x00}, false)
	s.False(rsp.Sent)
	s.False(s.registry.IsSubscribed(s.peer.ID()))

	s.observer.AssertExpectations(s.T())
}

func (s *DispatcherTestSuite) TestMalformedCCCDWriteIgnored() {
	for _, value := range [][]byte{{0x02, 0x00}, {0x01}, {}, {0x01, 0x00, 0x00}} {
		rsp := s.dispatcher.WriteDescriptor(s.peer, profile.ClientConfigUUID, value, true)
		s.Equal(StatusSuccess, rsp.Status)
		s.True(rsp.Sent)
		s.False(s.registry.IsSubscribed(s.peer.ID()))
	}
	s.observer.AssertNumberOfCalls(s.T(), "OnSubscriberChanged", 0)
}

func (s *DispatcherTestSuite) TestUnknownDescriptor() {
	rsp := s.dispatcher.ReadDescriptor(s.peer, ble.UUID16(0x2901))
	s.Equal(StatusFailure, rsp.Status)
	s.Nil(rsp.Value)

	rsp = s.dispatcher.WriteDescriptor(s.peer, ble.UUID16(0x2901), []byte{0x01, 0x00}, true)
	s.Equal(StatusFailure, rsp.Status)
	s.True(rsp.Sent)
	s.False(s.registry.IsSubscribed(s.peer.ID()))
}

func (s *DispatcherTestSuite) TestDisconnect() {
	s.observer.On("OnSubscriberChanged", s.peer.ID(), true).Once()
	s.observer.On("OnSubscriberChanged", s.peer.ID(), false).Once()

	s.dispatcher.WriteDescriptor(s.peer, profile.ClientConfigUUID, profile.CCCDEnable, false)
	s.dispatcher.Disconnect(s.peer)
	s.dispatcher.Disconnect(s.peer)

	s.Equal(0, s.registry.Len())
	s.observer.AssertExpectations(s.T())
}

func TestDispatcherTestSuite(t *testing.T) {
	suite.Run(t, new(DispatcherTestSuite))
}

func TestStatusATT(t *testing.T) {
	require.Equal(t, ble.ErrSuccess, StatusSuccess.ATT())
	assert.Equal(t, ble.ErrReadNotPerm, StatusReadNotPermitted.ATT())
	assert.Equal(t, ble.ErrUnlikely, StatusFailure.ATT())
	assert.Equal(t, "read not permitted", StatusReadNotPermitted.String())
}
