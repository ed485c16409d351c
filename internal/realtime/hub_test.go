package realtime

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// fakeConn records written messages and can be switched to fail
type fakeConn struct {
	messages []interface{}
	fail     bool
	closed   bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	if c.fail {
		return errors.New("write on closed connection")
	}
	c.messages = append(c.messages, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func newTestHub() *Hub {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewHub(log)
}

func TestPushToUserDeliversToAllConnections(t *testing.T) {
	hub := newTestHub()
	first := &fakeConn{}
	second := &fakeConn{}
	hub.Register(7, first)
	hub.Register(7, second)

	hub.PushToUser(7, "hello")

	require.Equal(t, []interface{}{"hello"}, first.messages)
	require.Equal(t, []interface{}{"hello"}, second.messages)
}

func TestPushToUnknownUserIsNoop(t *testing.T) {
	hub := newTestHub()
	hub.PushToUser(42, "nobody home")
	require.Zero(t, hub.ConnectionCount(42))
}

func TestPushDoesNotCrossUsers(t *testing.T) {
	hub := newTestHub()
	mine := &fakeConn{}
	theirs := &fakeConn{}
	hub.Register(1, mine)
	hub.Register(2, theirs)

	hub.PushToUser(1, "private")

	require.Len(t, mine.messages, 1)
	require.Empty(t, theirs.messages)
}

func TestFailingConnectionIsRetired(t *testing.T) {
	hub := newTestHub()
	healthy := &fakeConn{}
	dead := &fakeConn{fail: true}
	hub.Register(3, healthy)
	hub.Register(3, dead)

	hub.PushToUser(3, "first")
	require.True(t, dead.closed)
	require.Equal(t, 1, hub.ConnectionCount(3))

	// Retired connections never see later pushes
	hub.PushToUser(3, "second")
	require.Equal(t, []interface{}{"first", "second"}, healthy.messages)
	require.Empty(t, dead.messages)
}

func TestUnregisterRemovesConnection(t *testing.T) {
	hub := newTestHub()
	conn := &fakeConn{}
	hub.Register(5, conn)
	require.Equal(t, 1, hub.ConnectionCount(5))

	hub.Unregister(5, conn)
	require.Zero(t, hub.ConnectionCount(5))

	hub.PushToUser(5, "gone")
	require.Empty(t, conn.messages)
}

func TestCloseShutsEverythingDown(t *testing.T) {
	hub := newTestHub()
	a := &fakeConn{}
	b := &fakeConn{}
	hub.Register(1, a)
	hub.Register(2, b)

	hub.Close()

	require.True(t, a.closed)
	require.True(t, b.closed)
	require.Zero(t, hub.ConnectionCount(1))
	require.Zero(t, hub.ConnectionCount(2))
}
