package messaging

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"fieldcore/store"
)

type fakePublisher struct {
	connected bool
	failTopic string
	published []string
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	if topic == p.failTopic {
		return errors.New("broker unreachable")
	}
	p.published = append(p.published, topic)
	return nil
}

func (p *fakePublisher) IsConnected() bool { return p.connected }

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDrainPublishesInOrder(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.EnqueueOutbox("t1", []byte("a"), KindEquipmentReleased, "job-1"))
	require.NoError(t, db.EnqueueOutbox("t2", []byte("b"), KindConflictDetected, "job-2"))

	pub := &fakePublisher{connected: true}
	d := NewOutboxDrainer(db, pub, 0)
	d.Drain()

	require.Equal(t, []string{"t1", "t2"}, pub.published)
	pending, err := db.ListPendingOutbox(10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestDrainSkipsWhenDisconnected(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.EnqueueOutbox("t1", []byte("a"), KindEquipmentReleased, "job-1"))

	pub := &fakePublisher{connected: false}
	d := NewOutboxDrainer(db, pub, 0)
	d.Drain()

	require.Empty(t, pub.published)
	pending, err := db.ListPendingOutbox(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestDrainStopsAtFirstFailure(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.EnqueueOutbox("t1", []byte("a"), KindEquipmentReleased, "job-1"))
	require.NoError(t, db.EnqueueOutbox("bad", []byte("b"), KindConflictDetected, "job-2"))
	require.NoError(t, db.EnqueueOutbox("t3", []byte("c"), KindSyncRequested, "job-3"))

	pub := &fakePublisher{connected: true, failTopic: "bad"}
	d := NewOutboxDrainer(db, pub, 0)
	d.logFn = func(string, ...any) {}
	d.Drain()

	require.Equal(t, []string{"t1"}, pub.published)
	pending, err := db.ListPendingOutbox(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	// The failed row goes out on the next pass once the broker recovers.
	pub.failTopic = ""
	d.Drain()
	pending, err = db.ListPendingOutbox(10)
	require.NoError(t, err)
	require.Empty(t, pending)
	require.Equal(t, []string{"t1", "bad", "t3"}, pub.published)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := NewEnvelope(KindEquipmentReleased, "job-7", "site-1", EquipmentReleased{
		Serial:    "SS-0007",
		FromJobID: 7,
		ToJobID:   9,
	})
	require.NotEmpty(t, env.ID)

	data, err := env.Encode()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, env.ID, got.ID)
	require.Equal(t, KindEquipmentReleased, got.Kind)
	require.Equal(t, "job-7", got.JobKey)
	require.Contains(t, string(got.Payload), "SS-0007")

	_, err = Decode([]byte("{not json"))
	require.Error(t, err)
}

func TestUpdatesTopic(t *testing.T) {
	require.Equal(t, "fieldcore.updates.job-7", UpdatesTopic("fieldcore.updates", "job-7"))
}
