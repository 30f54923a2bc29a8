package moviequiz

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// WriteCSV writes one row per question: id, type, question, correct, d1..dN
// and meta (the source title). N is the largest distractor count among the
// items; shorter lists leave trailing cells blank.
func WriteCSV(w io.Writer, items []QuestionItem) error {
	width := 0
	for _, item := range items {
		width = max(width, len(item.Distractors))
	}

	header := []string{"id", "type", "question", "correct"}
	for i := range width {
		header = append(header, fmt.Sprintf("d%d", i+1))
	}
	header = append(header, "meta")

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, item := range items {
		row := make([]string, 0, len(header))
		row = append(row, item.ID, string(item.Kind), item.Prompt, item.CorrectAnswer)
		for i := range width {
			cell := ""
			if i < len(item.Distractors) {
				cell = item.Distractors[i]
			}
			row = append(row, cell)
		}
		row = append(row, item.SourceTitle)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the quiz as indented JSON
func WriteJSON(w io.Writer, quiz *Quiz) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(quiz); err != nil {
		return fmt.Errorf("failed to marshal quiz: %w", err)
	}
	return nil
}
