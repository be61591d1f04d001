package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/officehub/console/internal/ierr"
	"go.uber.org/zap"
)

const csrfHeader = "X-CSRFToken"

type Admin struct {
	Id         int    `json:"id"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	OfficeName string `json:"office_name"`
	OfficeId   int    `json:"office_id"`
	IsActive   bool   `json:"is_active"`
	ProfilePic string `json:"profile_pic"`
}

type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// FormResult is the outcome of the redirect-or-JSON submission contract:
// a 3xx means the server wants a navigation, a JSON body carries the
// success flag.
type FormResult struct {
	Success    bool
	Redirected bool
	Location   string
	Message    string
}

type Upload struct {
	Field    string
	Filename string
	Content  []byte
}

// Client wraps the console's REST surface. Mutating calls carry the
// CSRF token header; responses are JSON unless the server redirects.
type Client struct {
	logger     *zap.Logger
	baseURL    string
	csrfToken  string
	httpClient *http.Client
}

func NewClient(logger *zap.Logger, baseURL, csrfToken string) *Client {
	return &Client{
		logger:    logger,
		baseURL:   strings.TrimRight(baseURL, "/"),
		csrfToken: csrfToken,
		httpClient: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Redirects are part of the response contract, not
				// something to follow.
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *Client) Admin(ctx context.Context, id int) (Admin, error) {
	var response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Admin   Admin  `json:"admin"`
	}

	err := c.getJSON(ctx, fmt.Sprintf("/admin/api/admin/%d", id), &response)
	if err != nil {
		return Admin{}, err
	}
	if !response.Success {
		return Admin{}, ierr.New(ierr.ErrorCodeRequest, errors.New(orDefault(response.Message, "admin not found")))
	}

	return response.Admin, nil
}

func (c *Client) OfficeAdmins(ctx context.Context, officeId int) ([]Admin, error) {
	var response struct {
		Admins []Admin `json:"admins"`
	}

	err := c.getJSON(ctx, fmt.Sprintf("/admin/api/office/%d/admins", officeId), &response)
	if err != nil {
		return nil, err
	}

	return response.Admins, nil
}

func (c *Client) ToggleStudentStatus(ctx context.Context, studentId int, active bool) (Result, error) {
	return c.postJSON(ctx, "/admin/toggle_student_status", map[string]any{
		"student_id": studentId,
		"is_active":  active,
	})
}

func (c *Client) RemoveOfficeAdmin(ctx context.Context, officeId, adminId int) (Result, error) {
	return c.postJSON(ctx, "/admin/remove_office_admin", map[string]any{
		"office_id": officeId,
		"admin_id":  adminId,
	})
}

func (c *Client) ResetAdminPassword(ctx context.Context, adminId int) (Result, error) {
	return c.postJSON(ctx, "/admin/reset_admin_password", map[string]any{
		"admin_id": adminId,
	})
}

func (c *Client) RemoveProfilePhoto(ctx context.Context) (Result, error) {
	return c.postJSON(ctx, "/admin/remove_profile_photo", nil)
}

func (c *Client) CreateAnnouncement(ctx context.Context, title, content string) (Result, error) {
	return c.postJSON(ctx, "/admin/api/announcements", map[string]any{
		"title":   title,
		"content": content,
	})
}

// SubmitForm posts fields (and an optional photo) as multipart form
// data, honoring the redirect-or-JSON contract.
func (c *Client) SubmitForm(ctx context.Context, action string, fields map[string]string, photo *Upload) (FormResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return FormResult{}, ierr.New(ierr.ErrorCodeInternal, err)
		}
	}
	if photo != nil {
		part, err := writer.CreateFormFile(photo.Field, photo.Filename)
		if err != nil {
			return FormResult{}, ierr.New(ierr.ErrorCodeInternal, err)
		}
		if _, err := part.Write(photo.Content); err != nil {
			return FormResult{}, ierr.New(ierr.ErrorCodeInternal, err)
		}
	}
	if err := writer.Close(); err != nil {
		return FormResult{}, ierr.New(ierr.ErrorCodeInternal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+action, &body)
	if err != nil {
		return FormResult{}, ierr.New(ierr.ErrorCodeInternal, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(csrfHeader, c.csrfToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FormResult{}, ierr.New(ierr.ErrorCodeTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return FormResult{
			Success:    true,
			Redirected: true,
			Location:   resp.Header.Get("Location"),
		}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FormResult{}, statusError(resp)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return FormResult{}, ierr.New(ierr.ErrorCodeRequest, err)
	}

	return FormResult{
		Success: result.Success,
		Message: result.Message,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return ierr.New(ierr.ErrorCodeInternal, err)
	}

	return c.do(req, v)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (Result, error) {
	var body io.Reader
	if payload != nil {
		rawJson, err := json.Marshal(payload)
		if err != nil {
			return Result{}, ierr.New(ierr.ErrorCodeInternal, err)
		}
		body = bytes.NewReader(rawJson)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return Result{}, ierr.New(ierr.ErrorCodeInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(csrfHeader, c.csrfToken)

	var result Result
	if err := c.do(req, &result); err != nil {
		return Result{}, err
	}

	return result, nil
}

func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ierr.New(ierr.ErrorCodeTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := statusError(resp)
		c.logger.Warn("request failed",
			zap.String("path", req.URL.Path),
			zap.Error(err))

		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return ierr.New(ierr.ErrorCodeRequest, err)
	}

	return nil
}

func statusError(resp *http.Response) error {
	return ierr.New(ierr.ErrorCodeRequest,
		fmt.Errorf("server responded with %d: %s", resp.StatusCode, resp.Status))
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}

	return s
}
