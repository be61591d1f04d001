package feature

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/officehub/console/internal/ierr"
	"github.com/officehub/console/internal/notify"
	"github.com/officehub/console/internal/realtime"
	"github.com/officehub/console/internal/restapi"
	"github.com/officehub/console/internal/view"
	"go.uber.org/zap"
)

// Element ids the dashboard page is expected to provide.
const (
	DashboardID       = "admin-dashboard"
	ActiveUsersID     = "active-users-list"
	UserActivityID    = "user-activity-log"
	AuditLogsID       = "audit-logs-list"
	AlertsContainerID = "alerts-container"
	statCounterIDFmt  = "stat-%s"
)

// announcementCreatedEvent tells the broadcaster a new announcement
// exists so other sessions hear about it.
const announcementCreatedEvent = "admin_announcement_created"

// maxFeedEntries caps the activity and audit feeds; the oldest entry
// beyond the cap is evicted.
const maxFeedEntries = 50

const defaultAlertTimeout = 5 * time.Second

// Dashboard reconciles the live dashboard widgets: dynamic stat
// counters, the active-users list, the capped activity and audit feeds,
// and transient system alerts.
type Dashboard struct {
	logger    *zap.Logger
	client    *realtime.Client
	presenter *notify.Presenter
	document  *view.Document
	api       *restapi.Client

	highlightTTL time.Duration
}

func NewDashboard(
	logger *zap.Logger,
	client *realtime.Client,
	presenter *notify.Presenter,
	document *view.Document,
	api *restapi.Client,
) *Dashboard {
	return &Dashboard{
		logger:       logger,
		client:       client,
		presenter:    presenter,
		document:     document,
		api:          api,
		highlightTTL: 5 * time.Second,
	}
}

func (r *Dashboard) Initialize() {
	r.client.On("system_alert", r.onSystemAlert)
	r.client.On("user_activity", r.onUserActivity)

	if r.document.Lookup(DashboardID) != nil {
		r.client.On("system_stats_update", r.onStatsUpdate)
		r.client.On("user_status_change", r.onUserStatusChange)
	} else {
		r.logger.Debug("dashboard not present, skipping stats and user list")
	}

	if r.document.Lookup(AuditLogsID) != nil {
		r.client.On("new_audit_log", r.onAuditLog)
	} else {
		r.logger.Debug("audit log view not present, skipping")
	}
}

func (r *Dashboard) onStatsUpdate(params json.RawMessage) {
	var counters map[string]any
	if !decode(r.logger, "system_stats_update", params, &counters) {
		return
	}

	for key, value := range counters {
		text := fmt.Sprintf("%v", value)
		r.document.Update(fmt.Sprintf(statCounterIDFmt, key), func(n *view.Node) {
			n.Text = text
		})
	}
}

func (r *Dashboard) onUserStatusChange(params json.RawMessage) {
	var data struct {
		Action    string `json:"action"`
		UserId    int    `json:"user_id"`
		UserName  string `json:"user_name"`
		Role      string `json:"role"`
		Timestamp string `json:"timestamp"`
	}
	if !decode(r.logger, "user_status_change", params, &data) {
		return
	}

	entryId := fmt.Sprintf("user-%d", data.UserId)

	switch data.Action {
	case "login":
		if r.document.Lookup(entryId) != nil {
			return
		}

		entry := view.NewNode("div").
			WithID(entryId).
			WithClass("active-user").
			WithChildren(
				view.NewNode("span").WithClass("name").WithText(data.UserName),
				view.NewNode("span").WithClass("role").WithText(data.Role),
				view.NewNode("span").WithClass("time").WithText(formatTimestamp(data.Timestamp)),
			)

		if err := r.document.Prepend(ActiveUsersID, entry); err != nil {
			r.logger.Debug("active users list not present", zap.Error(err))
		}
	case "logout":
		r.document.Remove(entryId)
	default:
		r.logger.Warn("unknown user status action", zap.String("action", data.Action))
	}
}

func (r *Dashboard) onUserActivity(params json.RawMessage) {
	var data struct {
		UserName   string `json:"user_name"`
		ActionType string `json:"action_type"`
		Details    string `json:"details"`
		Timestamp  string `json:"timestamp"`
	}
	if !decode(r.logger, "user_activity", params, &data) {
		return
	}

	summary := data.UserName + " " + data.ActionType
	if data.Details != "" {
		summary += " - " + data.Details
	}

	entry := view.NewNode("div").
		WithClass("activity", "activity-"+data.ActionType).
		WithChildren(
			view.NewNode("p").WithText(summary),
			view.NewNode("p").WithClass("time").WithText(formatTimestamp(data.Timestamp)),
		)

	if err := r.document.Prepend(UserActivityID, entry); err != nil {
		r.logger.Debug("activity log not present", zap.Error(err))
		return
	}

	r.document.TrimChildren(UserActivityID, maxFeedEntries)
}

func (r *Dashboard) onAuditLog(params json.RawMessage) {
	var data struct {
		Id         int    `json:"id"`
		Action     string `json:"action"`
		ActorName  string `json:"actor_name"`
		TargetType string `json:"target_type"`
		Timestamp  string `json:"timestamp"`
		IsSuccess  bool   `json:"is_success"`
	}
	if !decode(r.logger, "new_audit_log", params, &data) {
		return
	}

	outcome := "Failed"
	outcomeClass := "outcome-failed"
	if data.IsSuccess {
		outcome = "Success"
		outcomeClass = "outcome-success"
	}

	rowId := fmt.Sprintf("audit-%d", data.Id)
	row := view.NewNode("tr").
		WithID(rowId).
		WithChildren(
			view.NewNode("td").WithText(fmt.Sprintf("%d", data.Id)),
			view.NewNode("td").WithText(data.Action),
			view.NewNode("td").WithText(orDefault(data.ActorName, "System")),
			view.NewNode("td").WithText(orDefault(data.TargetType, "-")),
			view.NewNode("td").WithText(formatTimestamp(data.Timestamp)),
			view.NewNode("td").WithClass(outcomeClass).WithText(outcome),
		)

	if err := r.document.Prepend(AuditLogsID, row); err != nil {
		r.logger.Debug("audit log view not present", zap.Error(err))
		return
	}

	r.document.Highlight(rowId, r.highlightTTL)
	r.document.TrimChildren(AuditLogsID, maxFeedEntries)
}

func (r *Dashboard) onSystemAlert(params json.RawMessage) {
	var data struct {
		Level   string `json:"level"`
		Title   string `json:"title"`
		Message string `json:"message"`
		// Timeout is milliseconds, matching the wire payload.
		Timeout int `json:"timeout"`
	}
	if !decode(r.logger, "system_alert", params, &data) {
		return
	}

	alertId := "system-alert-" + gonanoid.Must()
	alert := view.NewNode("div").
		WithID(alertId).
		WithClass("system-alert", "alert-"+orDefault(data.Level, "info")).
		WithChildren(
			view.NewNode("h4").WithText(data.Title),
			view.NewNode("p").WithText(data.Message),
		)

	target := AlertsContainerID
	if r.document.Lookup(target) == nil {
		target = ""
	}

	if err := r.document.Append(target, alert); err != nil {
		r.logger.Warn("failed to mount system alert", zap.Error(err))
		return
	}

	timeout := defaultAlertTimeout
	if data.Timeout > 0 {
		timeout = time.Duration(data.Timeout) * time.Millisecond
	}

	time.AfterFunc(timeout, func() {
		r.document.Remove(alertId)
	})
}

// CreateAnnouncement posts a new announcement and tells the push channel
// about it so other sessions pick it up without waiting for a reload.
func (r *Dashboard) CreateAnnouncement(ctx context.Context, title, content string) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		err := ierr.New(ierr.ErrorCodeValidation, errors.New("please fill in both title and content"))
		r.presenter.Show("Announcements", err.Message, notify.KindError)

		return err
	}

	result, err := r.api.CreateAnnouncement(ctx, title, content)
	if err != nil {
		r.presenter.Show("Announcements", "An error occurred while creating announcement", notify.KindError)
		return err
	}

	if !result.Success {
		r.presenter.Show("Announcements",
			orDefault(result.Message, "Error creating announcement"),
			notify.KindError)
		return nil
	}

	// The broadcast is best-effort; the announcement itself is already
	// persisted.
	if err := r.client.Emit(announcementCreatedEvent, map[string]string{
		"title": title,
	}); err != nil {
		r.logger.Warn("failed to announce over push channel", zap.Error(err))
	}

	r.presenter.Show("Announcements", "Announcement created successfully", notify.KindSuccess)

	return nil
}

func formatTimestamp(timestamp string) string {
	if timestamp == "" {
		return "unknown time"
	}

	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return timestamp
	}

	return t.Format("Jan 2, 3:04 PM")
}
