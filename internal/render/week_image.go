package render

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/planbot/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontStyle определяет стиль шрифта
type FontStyle string

const (
	FontStyleDefault FontStyle = ""
	FontStyleBold    FontStyle = "bold"
)

// Константы размеров и отступов
const (
	imageWidth       = 1400
	imageHeight      = 900
	headerHeight     = 100
	leftLabelsWidth  = 80
	legendWidth      = 140
	dayPaddingX      = 8
	minLessonHeight  = 8.0
	lessonRadius     = 6.0
	shadowOffset     = 3.0
	hourPaddingTop   = 1
	hourPaddingBot   = 1
	defaultMinHour   = 8
	defaultMaxHour   = 18
	maxLessonTextLen = 20
)

// Константы шрифтов
const (
	titleFontSize      = 25.0
	dayFontSize        = 27.0
	hourLabelFontSize  = 18.0
	lessonFontSize     = 17.0
	lessonInfoFontSize = 14.0
	legendItemFontSize = 12.0
)

// Цветовая схема
var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 125}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{220, 220, 220, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}

	lessonTextColor   = color.RGBA{20, 24, 28, 230}
	lessonShadowColor = color.RGBA{0, 0, 0, 20}
	legendItemColor   = color.RGBA{70, 74, 78, 220}
)

// LessonType - известный тип занятия и его цвет на картинке
type LessonType struct {
	Name  string
	Color color.RGBA
}

// LessonTypes - типы занятий в порядке легенды; неизвестный тип рисуется как "other"
var LessonTypes = []LessonType{
	{"lecture", color.RGBA{133, 193, 85, 220}},
	{"lab", color.RGBA{100, 160, 230, 220}},
	{"seminar", color.RGBA{255, 196, 87, 220}},
	{"exercise", color.RGBA{190, 150, 220, 220}},
	{"exam", color.RGBA{255, 120, 120, 230}},
	{"other", color.RGBA{200, 200, 200, 220}},
}

// TypeColor возвращает цвет для типа занятия без учёта регистра
func TypeColor(lessonType string) color.RGBA {
	name := strings.ToLower(strings.TrimSpace(lessonType))
	for _, t := range LessonTypes {
		if t.Name == name {
			return t.Color
		}
	}
	return LessonTypes[len(LessonTypes)-1].Color
}

// hourRange содержит диапазон часов для отображения
type hourRange struct {
	start int
	end   int
	total int
}

var (
	fontsMu     sync.Mutex
	cachedFonts = make(map[FontStyle]*opentype.Font)
)

// loadFont загружает шрифт указанного стиля или использует basicfont как fallback
func loadFont(dc *gg.Context, size float64, style FontStyle) {
	fontsMu.Lock()
	parsed, ok := cachedFonts[style]
	if !ok {
		data := goregular.TTF
		if style == FontStyleBold {
			data = gobold.TTF
		}
		var err error
		parsed, err = opentype.Parse(data)
		if err != nil {
			parsed = nil
		}
		cachedFonts[style] = parsed
	}
	fontsMu.Unlock()

	if parsed != nil {
		face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			dc.SetFontFace(face)
			return
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

// WeekRenderer рисует план на учебную неделю (Пн-Пт)
type WeekRenderer struct {
	clock    func() time.Time
	location *time.Location
}

// NewWeekRenderer создаёт рендерер; текущий день и время берутся в location
func NewWeekRenderer(location *time.Location) *WeekRenderer {
	if location == nil {
		location = time.UTC
	}
	return &WeekRenderer{clock: time.Now, location: location}
}

// WithClock подменяет источник времени
func (r *WeekRenderer) WithClock(clock func() time.Time) *WeekRenderer {
	r.clock = clock
	return r
}

// Render генерирует PNG с занятиями плана
func (r *WeekRenderer) Render(plan *model.Plan, title string) ([]byte, error) {
	if plan == nil || plan.IsEmpty() {
		return nil, model.Errorf(model.ErrPlanEmpty, "Plan %q is empty", title)
	}

	now := r.clock().In(r.location)
	today, isWeekday := model.WeekdayOf(now)
	hours := calculateHourRange(plan)

	dc := createCanvas()
	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / model.DaysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	drawHeader(dc, title)
	drawHourLabels(dc, hours, cellHeight)
	for d := model.Monday; d <= model.Friday; d++ {
		x := float64(leftLabelsWidth + int(d)*dayWidth)
		y := float64(headerHeight)

		drawDayBackground(dc, x, y, dayWidth, dayHeight, int(d), isWeekday && d == today)
		drawDayHeader(dc, d, x, y, dayWidth)
		drawHourLines(dc, x, y, dayWidth, hours, cellHeight)
		for _, l := range plan.Lessons(d) {
			drawLesson(dc, l, x, y, dayWidth, hours, cellHeight)
		}
	}
	if isWeekday {
		drawCurrentTimeLine(dc, now, hours, cellHeight, dayWidth)
	}
	drawLegend(dc, dayWidth)

	return encodeImage(dc)
}

// calculateHourRange определяет диапазон часов по занятиям плана
func calculateHourRange(plan *model.Plan) hourRange {
	minHour := 24
	maxHour := 0

	for d := model.Monday; d <= model.Friday; d++ {
		for _, l := range plan.Lessons(d) {
			startH := l.Start.Hour()
			endH := l.End.Hour()
			if l.End.Minute() > 0 {
				endH++
			}
			if startH < minHour {
				minHour = startH
			}
			if endH > maxHour {
				maxHour = endH
			}
		}
	}

	if minHour == 24 {
		minHour = defaultMinHour
		maxHour = defaultMaxHour
	}

	startHour := minHour - hourPaddingTop
	endHour := maxHour + hourPaddingBot
	if startHour < 0 {
		startHour = 0
	}
	if endHour > 24 {
		endHour = 24
	}

	return hourRange{
		start: startHour,
		end:   endHour,
		total: endHour - startHour,
	}
}

// createCanvas создает новый контекст рисования с фоном
func createCanvas() *gg.Context {
	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetColor(bgColor)
	dc.Clear()
	return dc
}

func drawHeader(dc *gg.Context, title string) {
	loadFont(dc, titleFontSize, FontStyleBold)
	dc.SetColor(textColor)
	_, h := dc.MeasureString(title)
	dc.DrawStringAnchored(title, float64(leftLabelsWidth), float64(headerHeight)/8+h/2, 0, 0)
}

// drawHourLabels рисует колонку с часами слева
func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	loadFont(dc, hourLabelFontSize, FontStyleDefault)
	dc.SetColor(hourLabelColor)

	for hIdx := 0; hIdx <= hours.total; hIdx++ {
		y := float64(headerHeight) + float64(hIdx)*cellHeight
		label := model.NewClockTime(hours.start+hIdx, 0).String()
		dc.DrawStringAnchored(label, float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func drawDayBackground(dc *gg.Context, x, y float64, dayWidth, dayHeight, dayIndex int, isToday bool) {
	if isToday {
		dc.SetColor(todayBgColor)
	} else if dayIndex%2 == 0 {
		dc.SetColor(evenDayColor)
	} else {
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
	dc.Fill()
}

func drawDayHeader(dc *gg.Context, day model.Weekday, x, y float64, dayWidth int) {
	loadFont(dc, dayFontSize, FontStyleBold)
	dc.SetColor(textColor)
	dc.DrawStringAnchored(day.Short(), x+float64(dayWidth)/2, y, 0.5, -0.4)
}

// drawHourLines рисует горизонтальные линии часов
func drawHourLines(dc *gg.Context, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)

	for hIdx := 0; hIdx <= hours.total; hIdx++ {
		hy := y + float64(hIdx)*cellHeight
		dc.DrawLine(x, hy, x+float64(dayWidth), hy)
		dc.Stroke()
	}
}

// hourOf переводит время суток в дробные часы
func hourOf(c model.ClockTime) float64 {
	return float64(c.Hour()) + float64(c.Minute())/60.0
}

func drawLesson(dc *gg.Context, l model.Lesson, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	lessonY := y + (hourOf(l.Start)-float64(hours.start))*cellHeight
	lessonHeight := (hourOf(l.End) - hourOf(l.Start)) * cellHeight
	if lessonHeight < minLessonHeight {
		lessonHeight = minLessonHeight
	}

	fillColor := TypeColor(l.Type)
	width := float64(dayWidth) - float64(dayPaddingX*2)

	// Тень
	dc.SetColor(lessonShadowColor)
	dc.DrawRoundedRectangle(x+dayPaddingX+shadowOffset, lessonY+2+shadowOffset, width, lessonHeight-4, lessonRadius)
	dc.Fill()

	dc.SetColor(fillColor)
	dc.DrawRoundedRectangle(x+float64(dayPaddingX), lessonY+2, width, lessonHeight-4, lessonRadius)
	dc.Fill()

	// Рамка
	dc.SetColor(darkenColor(fillColor, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+float64(dayPaddingX), lessonY+2, width, lessonHeight-4, lessonRadius)
	dc.Stroke()

	txtX := x + float64(dayPaddingX) + 8
	txtY := lessonY + 18

	loadFont(dc, lessonFontSize, FontStyleBold)
	dc.SetColor(lessonTextColor)
	dc.DrawStringAnchored(truncate(l.Subject), txtX, txtY, 0, 0)

	// Подробности выводятся, только если занятие достаточно высокое
	lines := []string{
		fmt.Sprintf("%s-%s", l.Start, l.End),
		truncate(strings.TrimSpace(l.Room + " " + l.Teacher)),
	}
	if l.Repeat != model.RepeatAlways {
		lines = append(lines, string(l.Repeat)+" weeks")
	}
	loadFont(dc, lessonInfoFontSize, FontStyleDefault)
	for i, line := range lines {
		lineY := txtY + float64(i+1)*16
		if lineY > lessonY+lessonHeight-6 {
			break
		}
		dc.DrawStringAnchored(line, txtX, lineY, 0, 0)
	}
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxLessonTextLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLessonTextLen-3]) + "..."
}

// darkenColor затемняет цвет на указанный множитель
func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

// drawCurrentTimeLine рисует красную линию текущего времени
func drawCurrentTimeLine(dc *gg.Context, now time.Time, hours hourRange, cellHeight float64, dayWidth int) {
	currentHour := float64(now.Hour()) + float64(now.Minute())/60.0
	if currentHour < float64(hours.start) || currentHour > float64(hours.end) {
		return
	}

	y := float64(headerHeight) + (currentHour-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2.0)
	dc.DrawLine(float64(leftLabelsWidth), y, float64(leftLabelsWidth+model.DaysInWeek*dayWidth), y)
	dc.Stroke()
}

// drawLegend рисует легенду типов занятий справа
func drawLegend(dc *gg.Context, dayWidth int) {
	liX := float64(leftLabelsWidth + model.DaysInWeek*dayWidth + 10)
	liY := float64(imageHeight) - float64(len(LessonTypes))*28 - 20

	boxW := 20.0
	boxH := 14.0

	loadFont(dc, legendItemFontSize, FontStyleDefault)
	for _, item := range LessonTypes {
		dc.SetColor(item.Color)
		dc.DrawRoundedRectangle(liX, liY, boxW, boxH, 3)
		dc.Fill()

		dc.SetColor(legendItemColor)
		dc.DrawStringAnchored(item.Name, liX+boxW+8, liY+boxH/2+1, 0, 0.2)
		liY += boxH + 14
	}
}

// encodeImage кодирует изображение в PNG
func encodeImage(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
