package kafka_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/paideialabs/paideia/pkg/eventstream"
	"github.com/paideialabs/paideia/pkg/eventstream/kafka"
	"github.com/paideialabs/paideia/pkg/logger"
)

func TestKafkaPublisher(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Kafka Publisher Suite")
}

var _ = Describe("Publisher", func() {
	It("requires at least one broker", func() {
		_, err := kafka.NewPublisher(kafka.Config{}, logger.Nop())
		Expect(err).To(HaveOccurred())
	})

	It("applies defaults for topic and batch timeout", func() {
		p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(p.Close)
		Expect(p).NotTo(BeNil())
	})

	It("rejects nil events before touching the broker", func() {
		p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(p.Close)

		Expect(p.PublishInteraction(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(p.PublishRefresh(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
	})

	It("accepts explicit configuration", func() {
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers:      []string{"localhost:9092", "localhost:9093"},
			Topic:        "custom.topic",
			BatchTimeout: time.Second,
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(p.Close)
	})
})
