package mqtt

import (
	"context"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rjames86/grafana-collectors/pkg/logger"
)

type stubToken struct{}

func (stubToken) Wait() bool                     { return true }
func (stubToken) WaitTimeout(time.Duration) bool { return true }
func (stubToken) Done() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}
func (stubToken) Error() error { return nil }

type stubClient struct{}

func (stubClient) IsConnected() bool      { return true }
func (stubClient) IsConnectionOpen() bool { return true }
func (stubClient) Connect() paho.Token    { return stubToken{} }
func (stubClient) Disconnect(uint)        {}
func (stubClient) Publish(string, byte, bool, interface{}) paho.Token {
	return stubToken{}
}
func (stubClient) Subscribe(string, byte, paho.MessageHandler) paho.Token {
	return stubToken{}
}
func (stubClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return stubToken{}
}
func (stubClient) Unsubscribe(...string) paho.Token        { return stubToken{} }
func (stubClient) AddRoute(string, paho.MessageHandler)    {}
func (stubClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }

type stubMessage struct {
	topic   string
	payload []byte
}

func (m stubMessage) Duplicate() bool   { return false }
func (m stubMessage) Qos() byte         { return 1 }
func (m stubMessage) Retained() bool    { return false }
func (m stubMessage) Topic() string     { return m.topic }
func (m stubMessage) MessageID() uint16 { return 0 }
func (m stubMessage) Payload() []byte   { return m.payload }
func (m stubMessage) Ack()              {}

var _ = Describe("Subscriber", func() {
	newSubscriber := func(qos byte, handler HandlerFunc) *Subscriber {
		router, err := NewRouter(&RouterConfig{
			Logger: logger.NewDefault(),
			Routes: []Route{{Filter: "opensprinkler/#", Name: "sprinkler", Handler: handler}},
		})
		Expect(err).NotTo(HaveOccurred())

		sub, err := NewSubscriber(&SubscriberConfig{
			Logger:    logger.NewDefault(),
			Router:    router,
			BrokerURL: "tcp://localhost:1883",
			ClientID:  "test-subscriber",
			QoS:       qos,
		})
		Expect(err).NotTo(HaveOccurred())

		sub.client = stubClient{}
		return sub
	}

	noop := func(_ context.Context, _ Message) error { return nil }

	It("floors the subscription QoS at 1", func() {
		Expect(newSubscriber(0, noop).qos).To(Equal(byte(1)))
	})

	It("keeps a configured QoS above the floor", func() {
		Expect(newSubscriber(2, noop).qos).To(Equal(byte(2)))
	})

	It("dispatches messages that arrive before Close", func() {
		handled := 0
		sub := newSubscriber(1, func(_ context.Context, _ Message) error {
			handled++
			return nil
		})

		sub.handle(nil, stubMessage{topic: "opensprinkler/system", payload: []byte(`{}`)})
		Expect(handled).To(Equal(1))
	})

	It("drops messages delivered after Close instead of racing the shutdown wait", func() {
		handled := 0
		sub := newSubscriber(1, func(_ context.Context, _ Message) error {
			handled++
			return nil
		})

		sub.Close()
		sub.handle(nil, stubMessage{topic: "opensprinkler/system", payload: []byte(`{}`)})
		Expect(handled).To(BeZero())
	})
})
