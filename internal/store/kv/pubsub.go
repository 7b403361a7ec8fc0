package kv

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// PubSubService carries queue-update events over the backing store's
// pub/sub. The fan-out bus owns the one subscription per process; every
// dispatch publishes through the same service.
type PubSubService struct {
	rdb *RedisClient
	log *logrus.Entry
}

func NewPubSubService(rdb *RedisClient) *PubSubService {
	return &PubSubService{
		rdb: rdb,
		log: logrus.WithFields(logrus.Fields{"component": "pubsub"}),
	}
}

// PublishEvent marshals event as JSON and publishes it on channel.
func (ps *PubSubService) PublishEvent(channel string, event interface{}) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return ps.rdb.client.Publish(ps.rdb.ctx, channel, eventData).Err()
}

// SubscribeToEvents blocks on a single-channel subscription, handing each
// payload to handler. readyChan is signalled once the subscription is
// confirmed so the caller can publish without racing the attach.
func (ps *PubSubService) SubscribeToEvents(channel string, readyChan chan<- interface{}, handler func([]byte) error) error {
	pubsub := ps.rdb.client.Subscribe(ps.rdb.ctx, channel)
	defer pubsub.Close()

	_, err := pubsub.Receive(ps.rdb.ctx)
	if err != nil {
		return err
	}

	readyChan <- true

	ch := pubsub.Channel()
	for msg := range ch {
		if err := handler([]byte(msg.Payload)); err != nil {
			ps.log.WithError(err).Warn("pubsub handler failed")
		}
	}
	return nil
}

// PSubscribeToEvents is SubscribeToEvents's pattern-matching counterpart,
// used by the event bus to attach one subscriber to
// channel:queue_update:* regardless of how many services exist.
func (ps *PubSubService) PSubscribeToEvents(pattern string, readyChan chan<- interface{}, handler func(channel string, payload []byte) error) error {
	pubsub := ps.rdb.client.PSubscribe(ps.rdb.ctx, pattern)
	defer pubsub.Close()

	_, err := pubsub.Receive(ps.rdb.ctx)
	if err != nil {
		return err
	}

	readyChan <- true

	ch := pubsub.Channel()
	for msg := range ch {
		if err := handler(msg.Channel, []byte(msg.Payload)); err != nil {
			ps.log.WithError(err).Warn("pubsub handler failed")
		}
	}
	return nil
}
