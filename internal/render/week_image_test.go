package render

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/Freeeeeet/planbot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProducesPNG(t *testing.T) {
	plan := model.NewPlan(nil)
	require.NoError(t, plan.AddLesson(model.Lesson{
		Subject: "Math analysis",
		Teacher: "T",
		Room:    "101",
		Start:   model.NewClockTime(9, 0),
		End:     model.NewClockTime(10, 30),
		Day:     model.Tuesday,
		Type:    "Lab",
		Repeat:  model.RepeatOdd,
	}))

	r := NewWeekRenderer(time.UTC).WithClock(func() time.Time {
		return time.Date(2024, time.January, 2, 9, 45, 0, 0, time.UTC)
	})
	data, err := r.Render(plan, "A")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, imageWidth, img.Bounds().Dx())
	assert.Equal(t, imageHeight, img.Bounds().Dy())
}

func TestLongSubjectNeverReachesRenderer(t *testing.T) {
	plan := model.NewPlan(nil)
	err := plan.AddLesson(model.Lesson{
		Subject: "Mathematical analysis",
		Start:   model.NewClockTime(9, 0),
		End:     model.NewClockTime(10, 0),
		Day:     model.Monday,
		Repeat:  model.RepeatAlways,
	})
	assert.ErrorIs(t, err, model.ErrInvalidValue)
	assert.True(t, plan.IsEmpty())
}

func TestRenderRejectsEmptyPlan(t *testing.T) {
	_, err := NewWeekRenderer(nil).Render(model.NewPlan(nil), "A")
	assert.ErrorIs(t, err, model.ErrPlanEmpty)
}

func TestTypeColor(t *testing.T) {
	assert.Equal(t, LessonTypes[1].Color, TypeColor(" LAB "))
	assert.Equal(t, TypeColor("other"), TypeColor("unknown"))
}

func TestHourRange(t *testing.T) {
	plan := model.NewPlan(nil)
	require.NoError(t, plan.AddLesson(model.Lesson{
		Subject: "Late", Start: model.NewClockTime(22, 0), End: model.NewClockTime(23, 30),
		Day: model.Friday, Repeat: model.RepeatAlways,
	}))

	hours := calculateHourRange(plan)
	assert.Equal(t, 21, hours.start)
	assert.Equal(t, 24, hours.end)
	assert.Equal(t, 3, hours.total)
}
