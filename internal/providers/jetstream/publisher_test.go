package jetstream

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nftmx/pack-ledger/internal/adapter"
	"github.com/nftmx/pack-ledger/internal/domain"
	"github.com/nftmx/pack-ledger/internal/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

type stubConn struct {
	closed bool
}

func (c *stubConn) Close()               { c.closed = true }
func (c *stubConn) LastError() error     { return nil }
func (c *stubConn) ConnectedUrl() string { return "nats://stub:4222" }

type stubJetStream struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (s *stubJetStream) Publish(_ context.Context, subject string, data []byte, _ ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.subjects = append(s.subjects, subject)
	s.payloads = append(s.payloads, data)
	return &natsjs.PubAck{}, nil
}

type stubNatsJetStream struct {
	conn     *stubConn
	js       *stubJetStream
	failures int
	attempts int
}

func (s *stubNatsJetStream) Connect(_ string, _ ...nats.Option) (adapter.NatsConn, adapter.JetStream, error) {
	s.attempts++
	if s.attempts <= s.failures {
		return nil, nil, errors.New("connection refused")
	}
	return s.conn, s.js, nil
}

func newStubPublisher(t *testing.T, factory *stubNatsJetStream) *publisher {
	t.Helper()

	pub, err := NewPublisher(Config{
		URL:            "nats://stub:4222",
		StreamName:     "PACK_EVENTS",
		ConnectionName: "test",
		ConnectTimeout: 5 * time.Second,
	}, factory, adapter.NewJSON())
	require.NoError(t, err)
	return pub.(*publisher)
}

func TestPublishEvent(t *testing.T) {
	js := &stubJetStream{}
	factory := &stubNatsJetStream{conn: &stubConn{}, js: js}
	pub := newStubPublisher(t, factory)

	err := pub.PublishEvent(context.Background(), &domain.PackEvent{
		Kind:      domain.PackKindNFT,
		EventType: domain.PackEventTypePacked,
		PackID:    1,
		PackName:  "Genesis",
		Actor:     "0x1111111111111111111111111111111111111111",
		Price:     decimal.NewFromInt(100),
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.Len(t, js.subjects, 1)
	assert.Equal(t, "packs.nft.packed", js.subjects[0])
	assert.Contains(t, string(js.payloads[0]), `"pack_name":"Genesis"`)
}

func TestPublishEvent_SubjectPerKindAndType(t *testing.T) {
	js := &stubJetStream{}
	factory := &stubNatsJetStream{conn: &stubConn{}, js: js}
	pub := newStubPublisher(t, factory)

	events := []struct {
		kind      domain.PackKind
		eventType domain.PackEventType
		subject   string
	}{
		{domain.PackKindNFT, domain.PackEventTypeBought, "packs.nft.bought"},
		{domain.PackKindToken, domain.PackEventTypeUnpacked, "packs.token.unpacked"},
		{domain.PackKindToken, domain.PackEventTypeSaleUpdated, "packs.token.sale_updated"},
	}
	for _, e := range events {
		err := pub.PublishEvent(context.Background(), &domain.PackEvent{
			Kind:      e.kind,
			EventType: e.eventType,
			PackID:    1,
		})
		require.NoError(t, err)
	}

	require.Len(t, js.subjects, len(events))
	for i, e := range events {
		assert.Equal(t, e.subject, js.subjects[i])
	}
}

func TestPublishEvent_BrokerError(t *testing.T) {
	js := &stubJetStream{err: errors.New("no responders")}
	factory := &stubNatsJetStream{conn: &stubConn{}, js: js}
	pub := newStubPublisher(t, factory)

	err := pub.PublishEvent(context.Background(), &domain.PackEvent{
		Kind:      domain.PackKindNFT,
		EventType: domain.PackEventTypePacked,
	})
	require.Error(t, err)
}

func TestNewPublisher_RetriesConnect(t *testing.T) {
	factory := &stubNatsJetStream{conn: &stubConn{}, js: &stubJetStream{}, failures: 2}

	pub, err := NewPublisher(Config{
		URL:            "nats://stub:4222",
		StreamName:     "PACK_EVENTS",
		ConnectTimeout: 10 * time.Second,
	}, factory, adapter.NewJSON())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, factory.attempts, 3)

	pub.Close()
	assert.True(t, factory.conn.closed)
}
