// Package forms holds the pre-submission checks that block a request
// before it reaches the server. A violation is a validation error and is
// never submitted.
package forms

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/officehub/console/internal/ierr"
)

const (
	MinPasswordLength = 8
	MaxPhotoBytes     = 2 * 1024 * 1024
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var allowedPhotoTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
}

type AdminForm struct {
	FirstName       string
	MiddleName      string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate checks required fields and email shape. Password rules only
// apply when a password is being set.
func (f AdminForm) Validate() error {
	if strings.TrimSpace(f.FirstName) == "" ||
		strings.TrimSpace(f.LastName) == "" ||
		strings.TrimSpace(f.Email) == "" {
		return ierr.New(ierr.ErrorCodeValidation, errors.New("please fill all required fields"))
	}

	if !emailRegex.MatchString(strings.TrimSpace(f.Email)) {
		return ierr.New(ierr.ErrorCodeValidation, errors.New("please enter a valid email address"))
	}

	if f.Password != "" || f.ConfirmPassword != "" {
		return ValidatePassword(f.Password, f.ConfirmPassword)
	}

	return nil
}

func ValidatePassword(password, confirm string) error {
	if len(password) < MinPasswordLength {
		return ierr.New(ierr.ErrorCodeValidation,
			fmt.Errorf("password must be at least %d characters", MinPasswordLength))
	}

	if password != confirm {
		return ierr.New(ierr.ErrorCodeValidation, errors.New("passwords do not match"))
	}

	return nil
}

// ValidatePhoto enforces the upload constraints: jpeg/png/gif, 2 MiB cap.
func ValidatePhoto(contentType string, size int) error {
	if _, ok := allowedPhotoTypes[contentType]; !ok {
		return ierr.New(ierr.ErrorCodeValidation,
			errors.New("invalid file type, please upload a JPG, PNG, or GIF file"))
	}

	if size > MaxPhotoBytes {
		return ierr.New(ierr.ErrorCodeValidation,
			errors.New("file size exceeds the maximum limit of 2MB"))
	}

	return nil
}
