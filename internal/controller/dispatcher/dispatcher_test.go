package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/planbot/internal/callback"
	"github.com/Freeeeeet/planbot/internal/callbackstore"
	"github.com/Freeeeeet/planbot/internal/controller/messenger"
	"github.com/Freeeeeet/planbot/internal/controller/messenger/messengertest"
	"github.com/Freeeeeet/planbot/internal/controller/picker"
	"github.com/Freeeeeet/planbot/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	chatID  = int64(-10)
	ownerID = int64(1)
	otherID = int64(2)
)

type fixture struct {
	store    *callbackstore.Memory
	issuer   *callback.Issuer
	recorder *messengertest.Recorder
	disp     *Dispatcher
	calls    []Step
	reported []error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    callbackstore.NewMemory(time.Hour),
		recorder: messengertest.New(),
	}
	f.issuer = callback.NewIssuer(callback.NewCodec([]byte("secret")), f.store)
	f.disp = New(f.issuer, f.recorder, func(_ context.Context, _ int64, err error) {
		f.reported = append(f.reported, err)
	}, metrics.New(), zap.NewNop())

	require.NoError(t, f.disp.Register("delete_plan", func(_ context.Context, step Step) error {
		f.calls = append(f.calls, step)
		return nil
	}))
	return f
}

// render выпускает кнопки пикера и возвращает их данные
func (f *fixture) render(t *testing.T, caller int64, names ...string) (buttons []string, cancel string) {
	t.Helper()
	options := make([]picker.Option, 0, len(names))
	for _, n := range names {
		options = append(options, picker.Choice(n, "plan_name", n))
	}
	kb, err := picker.New("delete_plan", caller, options).Columns(1).Render(context.Background(), f.issuer)
	require.NoError(t, err)

	for _, row := range kb[:len(kb)-1] {
		buttons = append(buttons, row[0].Data)
	}
	return buttons, kb[len(kb)-1][0].Data
}

func press(user int64, data string) messenger.Press {
	return messenger.Press{
		ID:      "q",
		Data:    data,
		UserID:  user,
		ChatID:  chatID,
		Message: messenger.MessageRef{ChatID: chatID, MessageID: 55},
	}
}

func TestAuthorizedPressReachesHandler(t *testing.T) {
	f := newFixture(t)
	buttons, _ := f.render(t, ownerID, "A")

	outcome, err := f.disp.Dispatch(context.Background(), press(ownerID, buttons[0]))
	require.NoError(t, err)
	assert.Equal(t, Authorized, outcome)
	require.Len(t, f.calls, 1)

	name, _ := f.calls[0].Token.Payload.String("plan_name")
	assert.Equal(t, "A", name)
	assert.Equal(t, ownerID, f.calls[0].Press.UserID)
}

func TestTamperedTokenIsStale(t *testing.T) {
	f := newFixture(t)
	buttons, _ := f.render(t, ownerID, "A")

	cases := map[string]string{
		"truncated":  buttons[0][:len(buttons[0])-3],
		"no key":     "delete_plan:",
		"garbage":    "\x00\x01",
		"wrong flow": "join_plan" + buttons[0][len("delete_plan"):],
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			outcome, err := f.disp.Dispatch(context.Background(), press(ownerID, data))
			require.NoError(t, err)
			assert.Equal(t, Stale, outcome)
		})
	}

	assert.Empty(t, f.calls)
	assert.Len(t, f.recorder.Deleted, len(cases))
	for _, a := range f.recorder.Answers {
		assert.Equal(t, StaleText, a.Text)
	}
}

func TestForeignSignatureIsStale(t *testing.T) {
	f := newFixture(t)
	foreign := callback.NewIssuer(callback.NewCodec([]byte("other")), f.store)
	data, err := foreign.Issue(context.Background(), "b", callback.New("delete_plan", ownerID))
	require.NoError(t, err)

	outcome, err := f.disp.Dispatch(context.Background(), press(ownerID, data))
	require.NoError(t, err)
	assert.Equal(t, Stale, outcome)
	assert.Empty(t, f.calls)
}

func TestNonInitiatorIsRejectedWithoutSideEffects(t *testing.T) {
	f := newFixture(t)
	buttons, cancel := f.render(t, ownerID, "A")

	for _, data := range []string{buttons[0], cancel} {
		outcome, err := f.disp.Dispatch(context.Background(), press(otherID, data))
		require.NoError(t, err)
		assert.Equal(t, Rejected, outcome)
	}

	assert.Empty(t, f.calls)
	assert.Zero(t, f.recorder.Calls())
	for _, a := range f.recorder.Answers {
		assert.Empty(t, a.Text)
	}

	// отклонённое нажатие не расходует партию
	outcome, err := f.disp.Dispatch(context.Background(), press(ownerID, buttons[0]))
	require.NoError(t, err)
	assert.Equal(t, Authorized, outcome)
}

func TestBatchIsSingleUse(t *testing.T) {
	f := newFixture(t)
	buttons, cancel := f.render(t, ownerID, "A", "B")

	outcome, err := f.disp.Dispatch(context.Background(), press(ownerID, buttons[0]))
	require.NoError(t, err)
	assert.Equal(t, Authorized, outcome)

	for _, data := range []string{buttons[0], buttons[1], cancel} {
		outcome, err = f.disp.Dispatch(context.Background(), press(ownerID, data))
		require.NoError(t, err)
		assert.Equal(t, Stale, outcome)
	}
	assert.Len(t, f.calls, 1)
	assert.Empty(t, f.recorder.Deleted)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	_, cancel := f.render(t, ownerID, "A")

	outcome, err := f.disp.Dispatch(context.Background(), press(ownerID, cancel))
	require.NoError(t, err)
	assert.Equal(t, Cancelled, outcome)
	assert.Empty(t, f.calls)
	assert.Equal(t, []messenger.MessageRef{{ChatID: chatID, MessageID: 55}}, f.recorder.Deleted)
}

func TestHandlerErrorIsReported(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("boom")
	require.NoError(t, f.disp.Register("get_plan", func(context.Context, Step) error { return boom }))

	kb, err := picker.New("get_plan", ownerID, []picker.Option{picker.Choice("A", "plan_name", "A")}).
		Render(context.Background(), f.issuer)
	require.NoError(t, err)

	outcome, err := f.disp.Dispatch(context.Background(), press(ownerID, kb[0][0].Data))
	require.NoError(t, err)
	assert.Equal(t, Authorized, outcome)
	require.Len(t, f.reported, 1)
	assert.ErrorIs(t, f.reported[0], boom)
}

func TestRegisterDuplicate(t *testing.T) {
	f := newFixture(t)
	err := f.disp.Register("delete_plan", func(context.Context, Step) error { return nil })
	assert.ErrorIs(t, err, ErrDuplicateFlow)
	assert.Equal(t, 1, f.disp.Flows())
}
