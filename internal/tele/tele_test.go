package tele

import (
	"context"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	state_new "github.com/ttttcrngyblflpp/sc2remap/internal/state/new"
	tele_api "github.com/ttttcrngyblflpp/sc2remap/internal/tele/api"
	tele_config "github.com/ttttcrngyblflpp/sc2remap/internal/tele/config"
	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

func testTele(t testing.TB, ctx context.Context, log *log2.Log) (*Tele, *transportMock) {
	mock := &transportMock{t: t, outBuffer: 32}
	tele := NewWithTransporter(mock)
	conf := tele_config.Config{Enabled: true, MqttBroker: "mock"}
	require.NoError(t, tele.Init(ctx, log, conf))
	return tele, mock
}

func TestStateQueue(t *testing.T) {
	t.Parallel()

	tele, mock := testTele(t, context.Background(), log2.NewTest(t, log2.LDebug))
	defer tele.Close()

	tele.State(tele_api.State_Identify)
	tele.State(tele_api.State_Run)
	tele.State(tele_api.State_Run) // duplicate, not resent
	tele.State(tele_api.State_Problem)

	assert.Equal(t, "01", hex.EncodeToString(<-mock.outState))
	assert.Equal(t, "02", hex.EncodeToString(<-mock.outState))
	assert.Equal(t, "03", hex.EncodeToString(<-mock.outState))
	assert.Equal(t, "04", hex.EncodeToString(<-mock.outState))
}

func TestErrorDelivery(t *testing.T) {
	t.Parallel()

	tele, mock := testTele(t, context.Background(), log2.NewTest(t, log2.LDebug))
	defer tele.Close()

	tele.Error(fmt.Errorf("ohi"))
	assert.Equal(t, "ohi", string(<-mock.outError))
}

func TestWillPayload(t *testing.T) {
	t.Parallel()

	tele, mock := testTele(t, context.Background(), log2.NewTest(t, log2.LDebug))
	defer tele.Close()

	assert.Equal(t, []byte{byte(tele_api.State_Disconnected)}, mock.will)
}

func TestCommandStop(t *testing.T) {
	t.Parallel()

	ctx, g := state_new.NewTestContext(t, "test", "")
	tele, mock := testTele(t, ctx, g.Log)
	defer tele.Close()

	assert.True(t, mock.onCommand([]byte("stop")))
	// dispatch stops asynchronously so the transport can ack first
	g.Alive.Wait()
}

func TestCommandLoglevel(t *testing.T) {
	t.Parallel()

	ctx, g := state_new.NewTestContext(t, "test", "")
	tele, mock := testTele(t, ctx, g.Log)
	defer tele.Close()

	require.False(t, g.Log.Enabled(log2.LTrace))
	assert.True(t, mock.onCommand([]byte("loglevel trace")))
	assert.True(t, g.Log.Enabled(log2.LTrace))
}

func TestCommandUnknown(t *testing.T) {
	t.Parallel()

	ctx, g := state_new.NewTestContext(t, "test", "")
	tele, mock := testTele(t, ctx, g.Log)
	defer tele.Close()

	// unknown commands are acked and reported, not retried forever
	assert.True(t, mock.onCommand([]byte("frobnicate")))
	assert.Equal(t, "01", hex.EncodeToString(<-mock.outState))
	assert.Contains(t, string(<-mock.outError), "unknown command=frobnicate")
}

func TestDisabled(t *testing.T) {
	t.Parallel()

	tele := New()
	require.NoError(t, tele.Init(context.Background(), log2.NewTest(t, log2.LDebug), tele_config.Config{}))
	defer tele.Close()

	// no transport, no worker: the public API must still be safe to call
	tele.State(tele_api.State_Run)
	tele.Error(fmt.Errorf("dropped"))
	tele.StatModify(func(s *tele_api.Stat) { s.KeyboardIn++ })

	tele.StatModify(func(s *tele_api.Stat) {
		assert.Contains(t, s.Locked_String(), "kbd_in=1")
	})
}
