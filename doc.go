// Package amqpline provides resilient client-side access to a RabbitMQ
// cluster: multi-host connection supervision with automatic failover and
// reconnect, declarative channel setup replayed on every reconnect, a
// delivery/acknowledgment contract for consumers, and an idempotent shutdown
// coordinator reachable from signals, fatal errors and idle notification.
//
// A minimal worker:
//
//	client, err := amqpline.NewClient(amqpline.Config{
//		Active:   true,
//		Hosts:    []string{"rabbit-1:5672", "rabbit-2:5672"},
//		Username: "guest",
//		Password: "guest",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	client.HandleSignals()
//
//	_, err = client.WorkerQueue("orders", "events", []string{"order.*"},
//		func(ctx context.Context, d *amqpline.Delivery) error {
//			if err := process(d.Body); err != nil {
//				return err // nacked back for retry after a cooldown
//			}
//			return d.Ack()
//		})
package amqpline
