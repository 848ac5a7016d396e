package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

type sampleForm struct {
	Name  string   `json:"full_name" validate:"required,max=10"`
	Email string   `json:"email" validate:"required,email"`
	Start string   `json:"time" validate:"omitempty,clock"`
	Phone string   `json:"phone_number" validate:"omitempty,phone"`
	Slug  string   `json:"slug" validate:"omitempty,slug"`
	Year  int      `json:"year_of_study" validate:"min=1,max=6"`
	Areas []int64  `json:"area_ids" validate:"max=2"`
	Tags  []string `json:"-"`
}

func TestValidate_Valid(t *testing.T) {
	v := New()
	err := v.Validate(sampleForm{
		Name:  "Alice",
		Email: "alice@example.com",
		Start: "18:30",
		Phone: "+84 912-345-678",
		Slug:  "defi-night-2",
		Year:  3,
		Areas: []int64{1},
	})
	if err != nil {
		t.Errorf("Validate = %v, want nil", err)
	}
}

func TestValidate_ReturnsAPIErrorWithJSONFieldNames(t *testing.T) {
	v := New()
	err := v.Validate(sampleForm{
		Name:  strings.Repeat("x", 11),
		Email: "not-an-email",
		Start: "25:00",
		Phone: "abc",
		Slug:  "Bad Slug",
		Year:  7,
		Areas: []int64{1, 2, 3},
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidationFailed)
	}

	for _, want := range []string{
		"full_nameは10文字以内",
		"emailはメールアドレス",
		"timeはHH:MM形式",
		"phone_numberは電話番号",
		"slugは小文字英数字",
		"year_of_studyは6以下",
		"area_idsは2件以内",
	} {
		if !strings.Contains(apiErr.Message, want) {
			t.Errorf("Message %q does not contain %q", apiErr.Message, want)
		}
	}
}

func TestValidate_Required(t *testing.T) {
	v := New()
	err := v.Validate(sampleForm{Year: 1})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *model.APIError", err)
	}
	if !strings.Contains(apiErr.Message, "full_nameは必須です") || !strings.Contains(apiErr.Message, "emailは必須です") {
		t.Errorf("Message = %q", apiErr.Message)
	}
}
