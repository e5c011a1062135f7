package model

import "time"

// WeekInfo описывает текущую неделю для команды week_info
type WeekInfo struct {
	Number int
	Parity Repeat
	Today  string
}

// WeekInfoAt вычисляет номер ISO-недели и её чётность
func WeekInfoAt(now time.Time) WeekInfo {
	_, week := now.ISOWeek()
	parity := RepeatEven
	if week%2 == 1 {
		parity = RepeatOdd
	}
	return WeekInfo{
		Number: week,
		Parity: parity,
		Today:  now.Weekday().String(),
	}
}
