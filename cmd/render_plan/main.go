package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Freeeeeet/planbot/internal/model"
	"github.com/Freeeeeet/planbot/internal/render"
)

func main() {
	out := flag.String("out", "plan.png", "output file")
	title := flag.String("title", "Sample plan", "plan title")
	flag.Parse()

	plan := model.NewPlan(nil)
	lessons := []model.Lesson{
		sample(model.Monday, "Math", "Smith", "101", 9, 0, 10, 30, "lecture"),
		sample(model.Monday, "Physics", "Brown", "204", 11, 0, 12, 30, "lab"),
		sample(model.Tuesday, "History", "Clark", "12", 10, 0, 11, 0, "seminar"),
		sample(model.Wednesday, "Math", "Smith", "101", 9, 0, 10, 30, "exercise"),
		sample(model.Wednesday, "Chemistry", "Davis", "310", 14, 0, 15, 30, "lab"),
		sample(model.Friday, "Math", "Smith", "Aula", 12, 0, 14, 0, "exam"),
	}
	for _, l := range lessons {
		if err := plan.AddLesson(l); err != nil {
			fmt.Printf("Invalid sample lesson: %v\n", err)
			os.Exit(1)
		}
	}

	imageData, err := render.NewWeekRenderer(time.Local).Render(plan, *title)
	if err != nil {
		fmt.Printf("Render failed: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, imageData, 0o644); err != nil {
		fmt.Printf("Write failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Plan image saved to %s (%d lessons)\n", *out, len(lessons))
}

func sample(day model.Weekday, subject, teacher, room string, sh, sm, eh, em int, kind string) model.Lesson {
	return model.Lesson{
		Subject: subject,
		Teacher: teacher,
		Room:    room,
		Start:   model.NewClockTime(sh, sm),
		End:     model.NewClockTime(eh, em),
		Day:     day,
		Type:    kind,
		Repeat:  model.RepeatAlways,
	}
}
