package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

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
	chatID  = int64(-5)
	ownerID = int64(1)
	adminID = int64(99)
)

type nopRenderer struct{}

func (nopRenderer) Render(*model.Plan, string) ([]byte, error) { return []byte("png"), nil }

type env struct {
	recorder *messengertest.Recorder
	registry *Registry
	svc      *service.PlanService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := zap.NewNop()
	m := metrics.New()
	recorder := messengertest.New()
	svc := service.NewPlanService(repository.NewMemoryRepository(), nopRenderer{}, model.NewAdmins(adminID), time.UTC, logger)

	registry := NewRegistry(NewErrorReplier(recorder, m, logger), svc.IsAdmin, m, logger)
	registry.MustRegister(NewCommands(svc, recorder, registry, logger).List()...)
	return &env{recorder: recorder, registry: registry, svc: svc}
}

func (e *env) run(t *testing.T, user int64, text string) string {
	t.Helper()
	req, err := NewRequest(chatID, user, "user", text, false, messenger.MessageRef{})
	require.NoError(t, err)
	require.True(t, e.registry.Handle(context.Background(), req), "command %s", req.Command)

	last, ok := e.recorder.LastSent()
	require.True(t, ok)
	return last.Text
}

func TestGetPlansScenario(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, "No plans found", e.run(t, ownerID, "/get_plans"))
	assert.Equal(t, `Plan "A" created`, e.run(t, ownerID, "/create_plan A"))

	out := e.run(t, ownerID, "/get_plans")
	assert.Equal(t, 1, strings.Count(out, "\nA (owner 1)"))
	assert.Contains(t, out, "No students in the plan")
}

func TestAddAndEditLesson(t *testing.T) {
	e := newEnv(t)
	e.run(t, ownerID, `/create_plan "Group 1"`)

	out := e.run(t, ownerID, `/add_lesson "Group 1" day=1 subject=Math teacher=T room=101 start=09:00 end=10:00 type=lecture`)
	assert.Equal(t, "Lesson added: Tue 09:00-10:00 Math, room 101, T [lecture]", out)

	out = e.run(t, ownerID, `/edit_lesson "Group 1" idx=0 day=1 new_day=3 room=202`)
	assert.Contains(t, out, "Thu 09:00-10:00 Math, room 202")

	assert.Equal(t, "Nothing to change", e.run(t, ownerID, `/edit_lesson "Group 1" idx=0 day=3`))
	assert.Equal(t, `Unknown option "colour"`, e.run(t, ownerID, `/add_lesson "Group 1" colour=red`))

	plan, err := e.svc.GetPlan(context.Background(), chatID, "Group 1")
	require.NoError(t, err)
	assert.Len(t, plan.Lessons(model.Thursday), 1)
}

func TestOwnershipErrorsAreShownVerbatim(t *testing.T) {
	e := newEnv(t)
	e.run(t, ownerID, "/create_plan A")

	assert.Equal(t, `You are not the owner of plan "A"`, e.run(t, 2, "/edit_plan A new_name=B"))
	assert.Equal(t, `Plan "A" renamed to "B"`, e.run(t, adminID, "/edit_plan A new_name=B"))
	assert.Equal(t, `Plan "B" now belongs to 2`, e.run(t, ownerID, "/transfer_plan_ownership B new_owner=2"))
}

func TestDeleteAllIsAdminOnly(t *testing.T) {
	e := newEnv(t)
	e.run(t, ownerID, "/create_plan A")

	assert.Equal(t, "This command is available to administrators only", e.run(t, ownerID, "/delete_all"))
	assert.Equal(t, "Deleted 1 plans", e.run(t, adminID, "/delete_all"))
}

func TestHelpListsVisibleCommands(t *testing.T) {
	e := newEnv(t)
	out := e.run(t, ownerID, "/help")
	assert.Contains(t, out, "/create_plan <name> - Create a new plan")
	assert.NotContains(t, out, "/delete_all")
}

func TestUnknownAndEditedCommands(t *testing.T) {
	e := newEnv(t)

	req, err := NewRequest(chatID, ownerID, "user", "/unknown", false, messenger.MessageRef{})
	require.NoError(t, err)
	assert.False(t, e.registry.Handle(context.Background(), req))

	req, err = NewRequest(chatID, ownerID, "user", "/create_plan A", true, messenger.MessageRef{})
	require.NoError(t, err)
	assert.True(t, e.registry.Handle(context.Background(), req))
	assert.Zero(t, e.recorder.Calls())

	_, err = NewRequest(chatID, ownerID, "user", "plain text", false, messenger.MessageRef{})
	assert.ErrorIs(t, err, ErrNotCommand)
}

func TestPanicAndInternalErrorsGetGenericReply(t *testing.T) {
	e := newEnv(t)
	e.registry.MustRegister(
		Command{Name: "boom", Handler: func(context.Context, *Request) error { panic("boom") }},
		Command{Name: "fail", Handler: func(context.Context, *Request) error { return errors.New("db down") }},
	)

	assert.Equal(t, GenericErrorText, e.run(t, ownerID, "/boom"))
	assert.Equal(t, GenericErrorText, e.run(t, ownerID, "/fail"))
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req *Request) error {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}

	h := Chain(func(context.Context, *Request) error {
		order = append(order, "handler")
		return nil
	}, mw("outer"), mw("inner"))

	require.NoError(t, h(context.Background(), &Request{}))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestStatusCommands(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, "You do not belong to any plan", e.run(t, ownerID, "/now"))
	assert.Contains(t, e.run(t, ownerID, "/week_info"), "Week ")
}
