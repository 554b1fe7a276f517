// Package section turns a stored test section into the view model of its
// skill. Parsing is total: missing or malformed fields fall back to defaults
// and the worst outcome is an emptier view model.
package section

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mockielts/mockielts-backend/internal/model"
)

const listeningTransferMinutes = 10

// Find returns the section of the given kind from a structure document.
func Find(structure model.TestStructure, kind model.SectionKind) (model.Section, bool) {
	return structure.Section(kind)
}

// Build transforms sec as a section of the given kind. Answer keys are kept;
// call Redacted on the result before sending it to a candidate.
func Build(kind model.SectionKind, sec model.Section) model.SectionView {
	view := model.SectionView{Section: kind}
	switch kind {
	case model.SectionListening:
		t := Listening(sec)
		view.Listening = &t
	case model.SectionReading:
		t := Reading(sec)
		view.Reading = &t
	case model.SectionWriting:
		t := Writing(sec)
		view.Writing = &t
	case model.SectionSpeaking:
		t := Speaking(sec)
		view.Speaking = &t
	}
	return view
}

// Listening builds the listening view model.
func Listening(sec model.Section) model.ListeningTest {
	var parts []model.TestPart
	counter := 0
	for _, p := range sortedParts(sec.Parts) {
		first := counter + 1
		items := partItems(sec.Items, p.Part)
		questions := make([]model.Question, 0, len(items))
		for _, item := range items {
			counter++
			questions = append(questions, questionFromItem(item, counter))
		}

		part := model.TestPart{
			PartNumber: model.IntOr(p.Part, 0),
			Title:      partTitle(p),
			Subtitle:   questionRange(first, counter, len(questions)),
			Questions:  questions,
		}
		if audio, ok := findMedia(sec.Media, model.MediaKindAudio, p.Part, true); ok {
			part.AudioURL = audio.OpenURL
		}
		parts = append(parts, part)
	}

	audioURL := ""
	if audio, ok := findMedia(sec.Media, model.MediaKindAudio, nil, false); ok {
		audioURL = audio.OpenURL
	}

	duration := minutes(sec.TimeLimitSec)
	return model.ListeningTest{
		ID:               string(sec.ID),
		Title:            titleOr(sec.Title, "Listening Test"),
		Description:      "",
		TotalQuestions:   len(sec.Items),
		Duration:         duration,
		TestDuration:     duration,
		TransferDuration: listeningTransferMinutes,
		Parts:            nonNil(parts),
		AudioURL:         audioURL,
		AudioControlMode: model.AudioControlExam,
	}.WithAnswerKey()
}

// Reading builds the reading view model, parsing each part's passage.
func Reading(sec model.Section) model.ReadingTest {
	var parts []model.ReadingPart
	counter := 0
	for _, p := range sortedParts(sec.Parts) {
		first := counter + 1
		items := partItems(sec.Items, p.Part)
		questions := make([]model.Question, 0, len(items))
		for _, item := range items {
			counter++
			questions = append(questions, questionFromItem(item, counter))
		}

		instruction, _ := parseMeta(p.MetaJSON).str("instruction")
		parts = append(parts, model.ReadingPart{
			PartNumber:  model.IntOr(p.Part, 0),
			Title:       partTitle(p),
			Subtitle:    questionRange(first, counter, len(questions)),
			Instruction: instruction,
			Passage:     parsePassage(p),
			Questions:   questions,
		})
	}
	if parts == nil {
		parts = []model.ReadingPart{}
	}

	return model.ReadingTest{
		ID:             string(sec.ID),
		Title:          titleOr(sec.Title, "Reading Test"),
		Description:    "",
		TotalQuestions: len(sec.Items),
		Duration:       minutes(sec.TimeLimitSec),
		Parts:          parts,
	}.WithAnswerKey()
}

// Writing builds the writing view model from WRITING_TASK items only.
func Writing(sec model.Section) model.WritingTest {
	var items []model.Item
	for _, item := range sec.Items {
		if item.ItemType == model.ItemTypeWritingTask {
			items = append(items, item)
		}
	}
	sortItems(items)

	tasks := make([]model.WritingTask, 0, len(items))
	for i, item := range items {
		n := i + 1
		m := parseMeta(item.MetaJSON)

		minWords, ok := m.num("minWords")
		if !ok {
			minWords = 250
			if i == 0 {
				minWords = 150
			}
		}

		taskKey, _ := m.str("taskKey")
		if taskKey == "" {
			taskKey = item.TaskKey
		}
		if taskKey == "" {
			taskKey = fmt.Sprintf("task%d", n)
		}

		task := model.WritingTask{
			ID:          n,
			TaskNumber:  n,
			Title:       fmt.Sprintf("Task %d", n),
			Description: item.QuestionText,
			MinWords:    minWords,
			TaskKey:     taskKey,
		}
		if img, ok := findMedia(sec.Media, model.MediaKindImage, item.Part, true); ok {
			task.ImageURL = img.OpenURL
		}
		tasks = append(tasks, task)
	}

	return model.WritingTest{
		ID:       string(sec.ID),
		Title:    titleOr(sec.Title, "Writing Test"),
		Duration: minutes(sec.TimeLimitSec),
		Tasks:    tasks,
	}
}

// Speaking builds the speaking view model. Prompt ids run across parts;
// question numbers restart per part unless the item carries an order.
func Speaking(sec model.Section) model.SpeakingTest {
	parts := []model.SpeakingPart{}
	counter := 0
	for _, p := range sortedParts(sec.Parts) {
		topic := ""
		if p.Title != nil {
			topic = *p.Title
		}
		items := partItems(sec.Items, p.Part)
		questions := make([]model.SpeakingQuestion, 0, len(items))
		for i, item := range items {
			counter++
			questions = append(questions, model.SpeakingQuestion{
				ID:             counter,
				ItemID:         string(item.ID),
				QuestionNumber: model.IntOr(item.Order, i+1),
				Topic:          topic,
				Question:       item.QuestionText,
			})
		}
		parts = append(parts, model.SpeakingPart{
			PartNumber: model.IntOr(p.Part, 0),
			Title:      partTitle(p),
			Questions:  questions,
		})
	}

	return model.SpeakingTest{
		ID:             string(sec.ID),
		Title:          titleOr(sec.Title, "Speaking Test"),
		Duration:       minutes(sec.TimeLimitSec),
		Parts:          parts,
		TotalQuestions: len(sec.Items),
	}
}

// parsePassage reads explicit "paragraphs" (or "sections") metadata when
// present and otherwise splits the passage text on blank lines.
func parsePassage(p model.SectionPart) model.ReadingPassage {
	title := ""
	if p.Title != nil {
		title = *p.Title
	}
	m := parseMeta(p.MetaJSON)

	entries, explicit := m.list("paragraphs")
	if !explicit {
		entries, explicit = m.list("sections")
	}

	paragraphs := []model.PassageParagraph{}
	if explicit {
		for _, e := range entries {
			if isString(e) {
				paragraphs = append(paragraphs, labelledParagraph(text(e)))
				continue
			}
			obj, _ := object(e)
			paragraphs = append(paragraphs, model.PassageParagraph{
				Label: obj.firstText("", "label"),
				Text:  obj.firstText("", "text"),
			})
		}
		return model.ReadingPassage{Title: title, Paragraphs: paragraphs}
	}

	var chunks []string
	for _, c := range strings.Split(p.PassageText, "\n\n") {
		if c != "" {
			chunks = append(chunks, c)
		}
	}
	if len(chunks) > 0 && strings.TrimSpace(chunks[0]) == strings.TrimSpace(title) {
		chunks = chunks[1:]
	}
	for _, c := range chunks {
		paragraphs = append(paragraphs, model.PassageParagraph{Text: strings.TrimSpace(c)})
	}
	return model.ReadingPassage{Title: title, Paragraphs: paragraphs}
}

// labelledParagraph splits "A\nText" into label and text when the label is
// one to three characters long.
func labelledParagraph(s string) model.PassageParagraph {
	if nl := strings.IndexByte(s, '\n'); nl > 0 {
		if n := utf8.RuneCountInString(s[:nl]); n > 0 && n < 4 {
			return model.PassageParagraph{Label: s[:nl], Text: strings.TrimSpace(s[nl+1:])}
		}
	}
	return model.PassageParagraph{Text: strings.TrimSpace(s)}
}

func sortedParts(parts []model.SectionPart) []model.SectionPart {
	out := make([]model.SectionPart, len(parts))
	copy(out, parts)
	sort.SliceStable(out, func(i, j int) bool {
		return model.IntOr(out[i].Part, 0) < model.IntOr(out[j].Part, 0)
	})
	return out
}

// partItems returns the items of one part ordered by their order field. An
// item without a part number only belongs to a part without one.
func partItems(items []model.Item, part *int) []model.Item {
	var out []model.Item
	for _, item := range items {
		if samePart(item.Part, part) {
			out = append(out, item)
		}
	}
	sortItems(out)
	return out
}

func sortItems(items []model.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return model.IntOr(items[i].Order, 0) < model.IntOr(items[j].Order, 0)
	})
}

func samePart(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// findMedia returns the first media entry of a kind, optionally restricted to a part.
func findMedia(media []model.Media, kind string, part *int, matchPart bool) (model.Media, bool) {
	for _, m := range media {
		if m.Kind != kind {
			continue
		}
		if matchPart && !samePart(m.Part, part) {
			continue
		}
		return m, true
	}
	return model.Media{}, false
}

func partTitle(p model.SectionPart) string {
	if p.Title != nil {
		return *p.Title
	}
	return fmt.Sprintf("Part %d", model.IntOr(p.Part, 0))
}

func titleOr(title *string, def string) string {
	if title != nil {
		return *title
	}
	return def
}

// questionRange renders "Questions N–M", or nothing for a part without questions.
func questionRange(first, last, count int) string {
	if count == 0 {
		return ""
	}
	return fmt.Sprintf("Questions %d–%d", first, last)
}

func nonNil(parts []model.TestPart) []model.TestPart {
	if parts == nil {
		return []model.TestPart{}
	}
	return parts
}
