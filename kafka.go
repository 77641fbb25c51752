package auctionhouse

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nftbiennial/auctionhouse/schema"
	"github.com/segmentio/kafka-go"
)

const (
	AuctionTopic    = "auctionhouse_auction"
	GovernanceTopic = "auctionhouse_governance"
)

type KWriter struct {
	w *kafka.Writer
}

func NewKWriter(topic string, uri string) (*KWriter, error) {
	w := &kafka.Writer{
		Addr:     kafka.TCP(uri),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &KWriter{
		w: w,
	}, nil
}

func (kw *KWriter) Write(body []byte) error {
	err := kw.w.WriteMessages(
		context.Background(),
		kafka.Message{
			Value: body,
		},
	)
	return err
}

func (kw *KWriter) Close() {
	kw.w.Close()
}

func NewKWriters(uri string) (map[string]*KWriter, error) {
	auctionWriter, err := NewKWriter(AuctionTopic, uri)
	if err != nil {
		return nil, err
	}
	governanceWriter, err := NewKWriter(GovernanceTopic, uri)
	if err != nil {
		return nil, err
	}
	return map[string]*KWriter{
		AuctionTopic:    auctionWriter,
		GovernanceTopic: governanceWriter,
	}, nil
}

// emitEvent publishes fire-and-forget; auction state never depends on it.
func (s *AuctionHouse) emitEvent(topic, kind string, payload interface{}) {
	if s.KWriters == nil {
		return
	}
	kw, ok := s.KWriters[topic]
	if !ok {
		return
	}
	evt := schema.Event{
		Id:        uuid.NewString(),
		Kind:      kind,
		Timestamp: time.Now().Unix(),
		Payload:   payload,
	}
	by, err := json.Marshal(&evt)
	if err != nil {
		log.Error("marshal event", "kind", kind, "err", err)
		return
	}
	if err := s.eventsPool.Submit(func() {
		if err := kw.Write(by); err != nil {
			log.Error("write event to kafka", "kind", kind, "err", err)
		}
	}); err != nil {
		log.Error("submit event task", "kind", kind, "err", err)
	}
}
