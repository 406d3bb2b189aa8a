package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/apprank/internal/contract"
	"github.com/huangsam/apprank/schema"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// flushTimeout bounds how long a publish waits for the server to acknowledge.
const flushTimeout = 5 * time.Second

// publisher is the subset of *nats.Conn used for notifications.
type publisher interface {
	PublishMsg(msg *nats.Msg) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// NATSNotifier publishes run outcomes to <subject>.success and <subject>.failure.
type NATSNotifier struct {
	conn    publisher
	subject string
}

var _ contract.Notifier = &NATSNotifier{} // Compile-time check

// DialNATS connects to the NATS server at url.
func DialNATS(url, subject string, log logrus.FieldLogger) (*NATSNotifier, error) {
	options := []nats.Option{
		nats.Name("apprank"),
		nats.Timeout(10 * time.Second),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
	}
	nc, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}
	return newNATSNotifier(nc, subject), nil
}

func newNATSNotifier(conn publisher, subject string) *NATSNotifier {
	if subject == "" {
		subject = contract.DefaultNATSSubject
	}
	return &NATSNotifier{conn: conn, subject: subject}
}

// NotifySuccess implements contract.Notifier.
func (n *NATSNotifier) NotifySuccess(_ context.Context, run schema.RunInfo, summary schema.Summary) error {
	data, err := encodeSummary(summary)
	if err != nil {
		return err
	}
	return n.publish(EventSuccess, run, data)
}

// NotifyFailure implements contract.Notifier.
func (n *NATSNotifier) NotifyFailure(_ context.Context, run schema.RunInfo, report schema.FailureReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return n.publish(EventFailure, run, data)
}

func (n *NATSNotifier) publish(event string, run schema.RunInfo, data []byte) error {
	msg := nats.NewMsg(n.subject + "." + event)
	msg.Data = data
	msg.Header.Set(HeaderEvent, event)
	msg.Header.Set(HeaderRunID, run.ID)
	msg.Header.Set(HeaderRunDate, schema.FormatDate(run.Date))

	if err := n.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.Subject, err)
	}
	if err := n.conn.FlushTimeout(flushTimeout); err != nil {
		return fmt.Errorf("failed to flush %s: %w", msg.Subject, err)
	}
	return nil
}

// Close closes the NATS connection.
func (n *NATSNotifier) Close() {
	n.conn.Close()
}
