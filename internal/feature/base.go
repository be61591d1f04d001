// Package feature contains the page-scoped event routers. Each router is
// handed the connection manager, the presenter, and the view document,
// validates the element ids its page requires, and translates inbound
// domain events into incremental view mutations.
package feature

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/officehub/console/internal/notify"
	"github.com/officehub/console/internal/realtime"
	"go.uber.org/zap"
)

// BaseRouter wires the application-wide handlers every page gets:
// generic notifications, inquiry messages, counseling updates and
// announcements.
type BaseRouter struct {
	logger    *zap.Logger
	client    *realtime.Client
	presenter *notify.Presenter

	// currentPath suppresses the inquiry toast when the user is already
	// looking at that inquiry.
	currentPath string
}

func NewBaseRouter(
	logger *zap.Logger,
	client *realtime.Client,
	presenter *notify.Presenter,
	currentPath string,
) *BaseRouter {
	return &BaseRouter{
		logger:      logger,
		client:      client,
		presenter:   presenter,
		currentPath: currentPath,
	}
}

func (r *BaseRouter) Initialize() {
	r.client.On("notification", r.onNotification)
	r.client.On("new_inquiry_message", r.onInquiryMessage)
	r.client.On("counseling_session_update", r.onCounselingUpdate)
	r.client.On("new_announcement", r.onAnnouncement)
}

func (r *BaseRouter) onNotification(params json.RawMessage) {
	var data struct {
		Title   string `json:"title"`
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if !decode(r.logger, "notification", params, &data) {
		return
	}

	r.presenter.Show(data.Title, data.Message, kindFromString(data.Type))
}

func (r *BaseRouter) onInquiryMessage(params json.RawMessage) {
	var data struct {
		InquiryId int `json:"inquiry_id"`
	}
	if !decode(r.logger, "new_inquiry_message", params, &data) {
		return
	}

	inquiryPath := fmt.Sprintf("/inquiry/%d", data.InquiryId)
	if strings.Contains(r.currentPath, inquiryPath) {
		return
	}

	r.presenter.Show("New Message",
		fmt.Sprintf("You have a new message in inquiry #%d", data.InquiryId),
		notify.KindInfo)
}

func (r *BaseRouter) onCounselingUpdate(params json.RawMessage) {
	var data struct {
		Id     int    `json:"id"`
		Status string `json:"status"`
	}
	if !decode(r.logger, "counseling_session_update", params, &data) {
		return
	}

	r.presenter.Show("Counseling Session",
		fmt.Sprintf("Counseling session #%d status changed to %s", data.Id, data.Status),
		notify.KindInfo)
}

func (r *BaseRouter) onAnnouncement(params json.RawMessage) {
	var data struct {
		Title string `json:"title"`
	}
	if !decode(r.logger, "new_announcement", params, &data) {
		return
	}

	r.presenter.Show("New Announcement", data.Title, notify.KindInfo)
}

func kindFromString(s string) notify.Kind {
	switch s {
	case "success":
		return notify.KindSuccess
	case "warning":
		return notify.KindWarning
	case "error":
		return notify.KindError
	default:
		return notify.KindInfo
	}
}

// decode unmarshals an event payload, failing soft: the payload shape is
// the server's business, a mismatch is logged and the event skipped.
func decode(logger *zap.Logger, event string, params json.RawMessage, v any) bool {
	if len(params) == 0 {
		logger.Warn("event without payload", zap.String("event", event))
		return false
	}

	if err := json.Unmarshal(params, v); err != nil {
		logger.Warn("undecodable event payload",
			zap.String("event", event),
			zap.Error(err))
		return false
	}

	return true
}
