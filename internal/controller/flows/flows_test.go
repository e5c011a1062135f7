package flows

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/planbot/internal/callback"
	"github.com/Freeeeeet/planbot/internal/callbackstore"
	"github.com/Freeeeeet/planbot/internal/controller/dispatcher"
	"github.com/Freeeeeet/planbot/internal/controller/handlers"
	"github.com/Freeeeeet/planbot/internal/controller/messenger"
	"github.com/Freeeeeet/planbot/internal/controller/messenger/messengertest"
	"github.com/Freeeeeet/planbot/internal/metrics"
	"github.com/Freeeeeet/planbot/internal/model"
	"github.com/Freeeeeet/planbot/internal/repository"
	"github.com/Freeeeeet/planbot/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	chatID = int64(-7)
	u1     = int64(1)
	u2     = int64(2)
)

type nopRenderer struct{}

func (nopRenderer) Render(*model.Plan, string) ([]byte, error) { return []byte("png"), nil }

type env struct {
	issuer   *callback.Issuer
	recorder *messengertest.Recorder
	registry *handlers.Registry
	disp     *dispatcher.Dispatcher
	svc      *service.PlanService
	reported []error
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := zap.NewNop()
	m := metrics.New()
	e := &env{recorder: messengertest.New()}
	e.svc = service.NewPlanService(repository.NewMemoryRepository(), nopRenderer{}, model.NewAdmins(), time.UTC, logger)

	issuer := callback.NewIssuer(callback.NewCodec([]byte("secret")), callbackstore.NewMemory(time.Hour))
	e.issuer = issuer
	f := New(e.svc, issuer, e.recorder, logger)

	replier := handlers.NewErrorReplier(e.recorder, m, logger)
	e.registry = handlers.NewRegistry(replier, e.svc.IsAdmin, m, logger)
	e.registry.MustRegister(f.Commands()...)

	e.disp = dispatcher.New(issuer, e.recorder, func(_ context.Context, _ int64, err error) {
		e.reported = append(e.reported, err)
	}, m, logger)
	require.NoError(t, f.Register(e.disp))
	return e
}

func (e *env) command(t *testing.T, user int64, text string) messengertest.Sent {
	t.Helper()
	req, err := handlers.NewRequest(chatID, user, userName(user), text, false, messenger.MessageRef{})
	require.NoError(t, err)
	require.True(t, e.registry.Handle(context.Background(), req))

	last, ok := e.recorder.LastSent()
	require.True(t, ok)
	return last
}

func (e *env) press(t *testing.T, user int64, ref messenger.MessageRef, data string) dispatcher.Outcome {
	t.Helper()
	outcome, err := e.disp.Dispatch(context.Background(), messenger.Press{
		ID:       "q",
		Data:     data,
		UserID:   user,
		UserName: userName(user),
		ChatID:   chatID,
		Message:  ref,
	})
	require.NoError(t, err)
	return outcome
}

func userName(id int64) string {
	if id == u1 {
		return "alice"
	}
	return "bob"
}

// button ищет кнопку по подписи
func button(t *testing.T, kb messenger.Keyboard, label string) string {
	t.Helper()
	for _, row := range kb {
		for _, b := range row {
			if b.Text == label {
				return b.Data
			}
		}
	}
	t.Fatalf("button %q not found", label)
	return ""
}

// payloadKeys восстанавливает токен кнопки и возвращает ключи его payload
func (e *env) payloadKeys(t *testing.T, data string) []string {
	t.Helper()
	resolved, err := e.issuer.Resolve(context.Background(), data)
	require.NoError(t, err)
	return resolved.Token.Payload.Keys()
}

func (e *env) lastEdit(t *testing.T) messengertest.Sent {
	t.Helper()
	last, ok := e.recorder.LastEdited()
	require.True(t, ok)
	return last
}

func TestDeletePlanOnlyOfferedToOwner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.CreatePlan(ctx, chatID, u1, "A"))

	assert.Equal(t, "No plans found", e.command(t, u2, "/delete_plan").Text)

	prompt := e.command(t, u1, "/delete_plan")
	data := button(t, prompt.Keyboard, "A")

	assert.Equal(t, dispatcher.Rejected, e.press(t, u2, prompt.Ref, data))
	_, err := e.svc.GetPlan(ctx, chatID, "A")
	require.NoError(t, err, "plan must survive a foreign press")
	assert.Empty(t, e.recorder.Edited)
	assert.Empty(t, e.recorder.Deleted)

	assert.Equal(t, dispatcher.Authorized, e.press(t, u1, prompt.Ref, data))
	assert.Equal(t, `Plan "A" deleted`, e.lastEdit(t).Text)
	_, err = e.svc.GetPlan(ctx, chatID, "A")
	assert.ErrorIs(t, err, model.ErrPlanNotFound)

	assert.Equal(t, dispatcher.Stale, e.press(t, u1, prompt.Ref, data))
}

func TestRemoveLessonWalksThreeSteps(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.CreatePlan(ctx, chatID, u1, "A"))
	for _, l := range []model.Lesson{
		{Day: model.Tuesday, Subject: "Math", Teacher: "T", Room: "1", Start: model.NewClockTime(9, 0), End: model.NewClockTime(10, 0), Type: "lecture", Repeat: model.RepeatAlways},
		{Day: model.Tuesday, Subject: "Art", Teacher: "T", Room: "2", Start: model.NewClockTime(11, 0), End: model.NewClockTime(12, 0), Type: "lab", Repeat: model.RepeatAlways},
	} {
		require.NoError(t, e.svc.AddLesson(ctx, chatID, u1, "A", l))
	}

	prompt := e.command(t, u1, "/remove_lesson")
	require.Equal(t, dispatcher.Authorized, e.press(t, u1, prompt.Ref, button(t, prompt.Keyboard, "A")))

	days := e.lastEdit(t)
	assert.Equal(t, "Plan A: choose a day", days.Text)
	assert.Len(t, days.Keyboard, 2, "weekdays in one row plus cancel")
	require.Equal(t, dispatcher.Authorized, e.press(t, u1, prompt.Ref, button(t, days.Keyboard, "Tue")))

	lessons := e.lastEdit(t)
	assert.Equal(t, "Plan A, Tuesday: choose a lesson", lessons.Text)
	require.Len(t, lessons.Keyboard, 3)

	artLabel := lessons.Keyboard[1][0].Text
	require.Equal(t, dispatcher.Authorized, e.press(t, u1, prompt.Ref, lessons.Keyboard[1][0].Data))
	assert.Contains(t, e.lastEdit(t).Text, "Lesson removed:")
	assert.Contains(t, e.lastEdit(t).Text, "Art")

	left, err := e.svc.Lessons(ctx, chatID, "A", model.Tuesday)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.NotEqual(t, artLabel, left[0].Label())
}

func TestRemoveLessonDetectsShiftedIndex(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.CreatePlan(ctx, chatID, u1, "A"))
	math := model.Lesson{Day: model.Monday, Subject: "Math", Teacher: "T", Room: "1", Start: model.NewClockTime(9, 0), End: model.NewClockTime(10, 0), Type: "lecture", Repeat: model.RepeatAlways}
	require.NoError(t, e.svc.AddLesson(ctx, chatID, u1, "A", math))

	prompt := e.command(t, u1, "/remove_lesson")
	e.press(t, u1, prompt.Ref, button(t, prompt.Keyboard, "A"))
	e.press(t, u1, prompt.Ref, button(t, e.lastEdit(t).Keyboard, "Mon"))
	lessons := e.lastEdit(t)

	early := math
	early.Subject, early.Start, early.End = "Bio", model.NewClockTime(7, 0), model.NewClockTime(8, 0)
	require.NoError(t, e.svc.AddLesson(ctx, chatID, u1, "A", early))

	e.press(t, u1, prompt.Ref, lessons.Keyboard[0][0].Data)
	assert.Contains(t, e.lastEdit(t).Text, "is no longer on Monday")

	left, err := e.svc.Lessons(ctx, chatID, "A", model.Monday)
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestPlanDeletedMidFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.CreatePlan(ctx, chatID, u1, "A"))

	prompt := e.command(t, u1, "/clear_all")
	require.NoError(t, e.svc.DeletePlan(ctx, chatID, u1, "A"))

	assert.Equal(t, dispatcher.Authorized, e.press(t, u1, prompt.Ref, button(t, prompt.Keyboard, "A")))
	assert.Equal(t, `Plan "A" not found`, e.lastEdit(t).Text)
	assert.Empty(t, e.reported)
}

func TestJoinPlanMovesStudent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.CreatePlan(ctx, chatID, u1, "A"))
	require.NoError(t, e.svc.CreatePlan(ctx, chatID, u1, "B"))

	prompt := e.command(t, u2, "/join_plan")
	e.press(t, u2, prompt.Ref, button(t, prompt.Keyboard, "A"))
	assert.Equal(t, `bob joined plan "A"`, e.lastEdit(t).Text)

	prompt = e.command(t, u2, "/join_plan")
	e.press(t, u2, prompt.Ref, button(t, prompt.Keyboard, "B"))
	assert.Equal(t, `bob joined plan "B" and left plan "A"`, e.lastEdit(t).Text)

	_, err := e.svc.Students(ctx, chatID, "A")
	assert.ErrorIs(t, err, model.ErrNoStudents)
	students, err := e.svc.Students(ctx, chatID, "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, students)
}

func TestGetPlanSendsImage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.CreatePlan(ctx, chatID, u1, "A"))
	require.NoError(t, e.svc.AddLesson(ctx, chatID, u1, "A", model.Lesson{
		Day: model.Monday, Subject: "Math", Teacher: "T", Room: "1",
		Start: model.NewClockTime(9, 0), End: model.NewClockTime(10, 0), Type: "lecture", Repeat: model.RepeatAlways,
	}))

	prompt := e.command(t, u2, "/get_plan")
	e.press(t, u2, prompt.Ref, button(t, prompt.Keyboard, "A"))
	require.Len(t, e.recorder.Photos, 1)
	assert.Equal(t, "plan.png: Plan A", e.recorder.Photos[0].Text)
	assert.Equal(t, []messenger.MessageRef{prompt.Ref}, e.recorder.Deleted)

	e.command(t, u2, "/get_plan A")
	assert.Len(t, e.recorder.Photos, 2)
}

func TestCancelDeletesPicker(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.CreatePlan(ctx, chatID, u1, "A"))

	prompt := e.command(t, u1, "/clear_day")
	cancel := prompt.Keyboard[len(prompt.Keyboard)-1][0].Data

	assert.Equal(t, dispatcher.Rejected, e.press(t, u2, prompt.Ref, cancel))
	assert.Empty(t, e.recorder.Deleted)

	assert.Equal(t, dispatcher.Cancelled, e.press(t, u1, prompt.Ref, cancel))
	assert.Equal(t, []messenger.MessageRef{prompt.Ref}, e.recorder.Deleted)
	_, err := e.svc.GetPlan(ctx, chatID, "A")
	assert.NoError(t, err)
}

func TestRemoveLessonPayloadOnlyGrows(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.CreatePlan(ctx, chatID, u1, "A"))
	require.NoError(t, e.svc.AddLesson(ctx, chatID, u1, "A", model.Lesson{
		Day: model.Tuesday, Subject: "Math", Teacher: "T", Room: "1",
		Start: model.NewClockTime(9, 0), End: model.NewClockTime(10, 0), Type: "lecture", Repeat: model.RepeatAlways,
	}))

	prompt := e.command(t, u1, "/remove_lesson")
	chosen := button(t, prompt.Keyboard, "A")
	previous := e.payloadKeys(t, chosen)
	assert.Equal(t, []string{KeyPlan}, previous)

	steps := []struct {
		pick string
		want []string
	}{
		{pick: "Tue", want: []string{KeyDay, KeyPlan}},
		{pick: "09:00-10:00 Math", want: []string{KeyDay, KeyIndex, KeyLesson, KeyPlan}},
	}
	for _, step := range steps {
		require.Equal(t, dispatcher.Authorized, e.press(t, u1, prompt.Ref, chosen))
		picker := e.lastEdit(t)
		for _, row := range picker.Keyboard {
			for _, b := range row {
				assert.Subset(t, e.payloadKeys(t, b.Data), previous, "button %q", b.Text)
			}
		}
		chosen = button(t, picker.Keyboard, step.pick)
		previous = e.payloadKeys(t, chosen)
		assert.Equal(t, step.want, previous)
	}
}

func TestClearDayEmptiesOnlyChosenDay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.CreatePlan(ctx, chatID, u1, "A"))
	for _, day := range []model.Weekday{model.Monday, model.Tuesday} {
		require.NoError(t, e.svc.AddLesson(ctx, chatID, u1, "A", model.Lesson{
			Day: day, Subject: "Math", Teacher: "T", Room: "1",
			Start: model.NewClockTime(9, 0), End: model.NewClockTime(10, 0), Type: "lecture", Repeat: model.RepeatAlways,
		}))
	}

	prompt := e.command(t, u1, "/clear_day")
	require.Equal(t, dispatcher.Authorized, e.press(t, u1, prompt.Ref, button(t, prompt.Keyboard, "A")))

	days := e.lastEdit(t)
	assert.Equal(t, prompt.Ref, days.Ref, "day picker replaces the plan picker")
	assert.Equal(t, "Plan A: which day should be cleared?", days.Text)

	require.Equal(t, dispatcher.Authorized, e.press(t, u1, prompt.Ref, button(t, days.Keyboard, "Tue")))
	done := e.lastEdit(t)
	assert.Equal(t, prompt.Ref, done.Ref)
	assert.Equal(t, `Tuesday cleared in plan "A"`, done.Text)
	assert.Len(t, e.recorder.Sent, 1, "flow never sends a second message")

	_, err := e.svc.Lessons(ctx, chatID, "A", model.Tuesday)
	assert.ErrorIs(t, err, model.ErrNoLessons)
	monday, err := e.svc.Lessons(ctx, chatID, "A", model.Monday)
	require.NoError(t, err)
	assert.Len(t, monday, 1)
}

func TestGetStudentsShowsRoster(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.CreatePlan(ctx, chatID, u1, "A"))

	prompt := e.command(t, u1, "/get_students")
	require.Equal(t, dispatcher.Authorized, e.press(t, u1, prompt.Ref, button(t, prompt.Keyboard, "A")))
	assert.Equal(t, "No students in the plan", e.lastEdit(t).Text)

	_, err := e.svc.JoinPlan(ctx, chatID, service.Member{ID: u2, Name: "bob"}, "A")
	require.NoError(t, err)

	prompt = e.command(t, u1, "/get_students")
	require.Equal(t, dispatcher.Authorized, e.press(t, u1, prompt.Ref, button(t, prompt.Keyboard, "A")))
	assert.Equal(t, "Students of plan A:\nbob", e.lastEdit(t).Text)
}

func TestRemoveLessonPlanDeletedBeforeDayPicker(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.CreatePlan(ctx, chatID, u1, "A"))

	prompt := e.command(t, u1, "/remove_lesson")
	require.NoError(t, e.svc.DeletePlan(ctx, chatID, u1, "A"))

	require.Equal(t, dispatcher.Authorized, e.press(t, u1, prompt.Ref, button(t, prompt.Keyboard, "A")))
	edit := e.lastEdit(t)
	assert.Equal(t, `Plan "A" not found`, edit.Text)
	assert.Empty(t, edit.Keyboard)
}
