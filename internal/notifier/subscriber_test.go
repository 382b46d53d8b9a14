package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/abgdnv/shopbot/internal/notifier/chat"
	"github.com/abgdnv/shopbot/pkg/config"
	"github.com/abgdnv/shopbot/pkg/messaging"
	"github.com/stretchr/testify/mock"
)

type mockAckableMsg struct {
	mock.Mock
}

func (m *mockAckableMsg) Data() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *mockAckableMsg) Subject() string {
	return messaging.OrdersCreatedSubject
}

func (m *mockAckableMsg) Ack() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockAckableMsg) Nak() error {
	args := m.Called()
	return args.Error(0)
}

func Test_HandleMessage(t *testing.T) {
	logger := testLogger()
	testCases := []struct {
		name       string
		chatClient *mockChatClient
		newMockMsg func() *mockAckableMsg
	}{
		{
			name:       "valid message is acked after provisioning",
			chatClient: &mockChatClient{channel: chat.Channel{ID: "chan-1"}},
			newMockMsg: func() *mockAckableMsg {
				payload, _ := json.Marshal(testEvent())
				msg := new(mockAckableMsg)
				msg.On("Data").Return(payload).Times(1)
				msg.On("Ack").Return(nil).Times(1)
				return msg
			},
		},
		{
			name:       "malformed payload is nacked",
			chatClient: &mockChatClient{},
			newMockMsg: func() *mockAckableMsg {
				msg := new(mockAckableMsg)
				msg.On("Data").Return([]byte("invalid data")).Times(1)
				msg.On("Nak").Return(nil).Times(1)
				return msg
			},
		},
		{
			name:       "provisioning failure is nacked for redelivery",
			chatClient: &mockChatClient{createErr: errors.New("gateway returned 502")},
			newMockMsg: func() *mockAckableMsg {
				payload, _ := json.Marshal(testEvent())
				msg := new(mockAckableMsg)
				msg.On("Data").Return(payload).Times(1)
				msg.On("Nak").Return(nil).Times(1)
				return msg
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			mockMsg := tc.newMockMsg()
			provisioner := NewProvisioner(tc.chatClient, config.ChatConfig{ChannelPrefix: "order-"}, logger)

			// when
			HandleMessage(context.Background(), mockMsg, provisioner, logger)

			// then
			mockMsg.AssertExpectations(t)
		})
	}
}

func Test_HandleMessage_NilMessage(t *testing.T) {
	provisioner := NewProvisioner(&mockChatClient{}, config.ChatConfig{}, testLogger())
	HandleMessage(context.Background(), nil, provisioner, testLogger())
}
