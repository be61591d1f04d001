package feature

import (
	"context"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/officehub/console/internal/restapi"
	"github.com/officehub/console/internal/view"
	"go.uber.org/zap"
)

// ContentContainerID is where flash banners land, at the top.
const ContentContainerID = "content-container"

// StudentManager drives the student status toggle flow: a successful
// toggle reloads the page, a refusal surfaces as a dismissible red flash
// banner and leaves the page alone.
type StudentManager struct {
	logger   *zap.Logger
	document *view.Document
	api      *restapi.Client
	reload   func()
}

func NewStudentManager(
	logger *zap.Logger,
	document *view.Document,
	api *restapi.Client,
	reload func(),
) *StudentManager {
	return &StudentManager{
		logger:   logger,
		document: document,
		api:      api,
		reload:   reload,
	}
}

func (m *StudentManager) ToggleStatus(ctx context.Context, studentId int, active bool) error {
	result, err := m.api.ToggleStudentStatus(ctx, studentId, active)
	if err != nil {
		m.logger.Warn("toggle student status failed",
			zap.Int("studentId", studentId),
			zap.Error(err))
		m.FlashError("An unexpected error occurred. Please try again.")

		return err
	}

	if !result.Success {
		m.FlashError("Error: " + result.Message)
		return nil
	}

	if m.reload != nil {
		m.reload()
	}

	return nil
}

// FlashError inserts a dismissible red banner at the top of the content
// container.
func (m *StudentManager) FlashError(message string) string {
	bannerId := "flash-" + gonanoid.Must()
	banner := view.NewNode("div").
		WithID(bannerId).
		WithClass("flash-message", "flash-error").
		WithChildren(
			view.NewNode("span").WithText(message),
		)

	target := ContentContainerID
	if m.document.Lookup(target) == nil {
		target = ""
	}

	if err := m.document.Prepend(target, banner); err != nil {
		m.logger.Warn("failed to mount flash banner", zap.Error(err))
	}

	return bannerId
}

// DismissFlash removes a flash banner (the close button).
func (m *StudentManager) DismissFlash(bannerId string) {
	m.document.Remove(bannerId)
}
