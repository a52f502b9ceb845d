package moderation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type SubmitPostRequest struct {
	// Text ends up in a photo caption, which Telegram caps at 1024 characters.
	Text        string `validate:"max=1024"`
	ImageFileID string `validate:"required"`
}

type SubmitFeedbackRequest struct {
	Message string `validate:"required,max=4000"`
}

type RejectRequest struct {
	PostID int64  `validate:"gt=0"`
	Reason string `validate:"required,max=1000"`
}

type RespondRequest struct {
	FeedbackID int64  `validate:"gt=0"`
	Response   string `validate:"required,max=4000"`
}

// StatusChangeRequest blocks or unblocks a user.
type StatusChangeRequest struct {
	UserID int64  `validate:"gt=0"`
	Reason string `validate:"required,max=1000"`
}

func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			problems = append(problems, fmt.Sprintf("%s is longer than %s", fe.Field(), fe.Param()))
		default:
			problems = append(problems, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, ", "))
}
