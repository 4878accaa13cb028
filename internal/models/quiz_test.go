package models

import (
	"errors"
	"testing"
)

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       Question
		wantErr bool
	}{
		{"valid", Question{QuestionTitle: "2+2?", QuestionOptions: []string{"1", "2", "3", "4"}, Answer: "4"}, false},
		{"three options", Question{QuestionTitle: "2+2?", QuestionOptions: []string{"1", "2", "4"}, Answer: "4"}, true},
		{"five options", Question{QuestionTitle: "2+2?", QuestionOptions: []string{"1", "2", "3", "4", "5"}, Answer: "4"}, true},
		{"missing title", Question{QuestionOptions: []string{"1", "2", "3", "4"}, Answer: "4"}, true},
		{"missing answer", Question{QuestionTitle: "2+2?", QuestionOptions: []string{"1", "2", "3", "4"}}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestQuestionValidate_OptionCountSentinel(t *testing.T) {
	q := Question{QuestionTitle: "t", QuestionOptions: []string{"a"}, Answer: "a"}
	if err := q.Validate(); !errors.Is(err, ErrQuestionOptionCount) {
		t.Fatalf("expected ErrQuestionOptionCount, got %v", err)
	}
}

func TestQuestionHasAnswerOption(t *testing.T) {
	q := Question{QuestionOptions: []string{"Paris", "Rome", "Berlin", "Madrid"}, Answer: " Paris "}
	if !q.HasAnswerOption() {
		t.Fatalf("expected answer to match an option")
	}

	q.Answer = "Lisbon"
	if q.HasAnswerOption() {
		t.Fatalf("expected answer not to match any option")
	}
}
