package scoring

import "github.com/mockielts/mockielts-backend/internal/model"

// StandardQuestionCount is the question count the raw-score table is defined for.
const StandardQuestionCount = 40

type threshold struct {
	min  float64
	band float64
}

var rawBands = []threshold{
	{39, 9.0}, {37, 8.5}, {35, 8.0}, {33, 7.5}, {30, 7.0}, {27, 6.5}, {23, 6.0},
	{20, 5.5}, {16, 5.0}, {13, 4.5}, {10, 4.0}, {6, 3.5}, {4, 3.0}, {3, 2.5},
}

const rawFloor = 2.0

var percentageBands = []threshold{
	{97.5, 9.0}, {92.5, 8.5}, {87.5, 8.0}, {82.5, 7.5}, {75, 7.0}, {67.5, 6.5},
	{57.5, 6.0}, {50, 5.5}, {40, 5.0}, {30, 4.5}, {23, 4.0},
}

const percentageFloor = 3.5

// RawScore counts the questions answered correctly. Missing answers count as wrong.
func RawScore(answers model.Answers, questions []model.Question) int {
	correct := 0
	for _, q := range questions {
		if questionCorrect(answers, q) {
			correct++
		}
	}
	return correct
}

// BandScore converts a raw score to a band. A 40-question test uses the raw
// table; any other size uses the percentage table, and an empty test scores
// the percentage floor.
func BandScore(raw, total int) float64 {
	if total == StandardQuestionCount {
		return lookup(rawBands, float64(raw), rawFloor)
	}
	if total <= 0 {
		return percentageFloor
	}
	percentage := float64(raw) / float64(total) * 100
	return lookup(percentageBands, percentage, percentageFloor)
}

func lookup(table []threshold, v, floor float64) float64 {
	for _, t := range table {
		if v >= t.min {
			return t.band
		}
	}
	return floor
}

// OverallBand averages section bands and rounds to the nearest half band.
func OverallBand(bands []float64) (float64, bool) {
	if len(bands) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, b := range bands {
		sum += b
	}
	return roundHalf(sum / float64(len(bands))), true
}

func roundHalf(v float64) float64 {
	return float64(int(v*2+0.5)) / 2
}
