package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/controller"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

type fakeController struct {
	registerErr  error
	recognizeErr error

	registeredID   int64
	registeredName string
	stopped        bool
	mode           string
}

func (f *fakeController) StartRegistration(_ context.Context, id int64, name string) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registeredID, f.registeredName = id, name
	f.mode = controller.ModeRegistering
	return nil
}

func (f *fakeController) StartRecognition(_ context.Context) error {
	if f.recognizeErr != nil {
		return f.recognizeErr
	}
	f.mode = controller.ModeRecognizing
	return nil
}

func (f *fakeController) Stop() {
	f.stopped = true
	f.mode = controller.ModeIdle
}

func (f *fakeController) Status() controller.Status {
	return controller.Status{Mode: f.mode}
}

func postControl(t *testing.T, h *ControlHandler, body string) (*httptest.ResponseRecorder, ControlResponse) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/control", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	h.Control(recorder, req)

	var resp ControlResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return recorder, resp
}

func TestControl_Register(t *testing.T) {
	ctrl := &fakeController{}
	h := NewControlHandler(ctrl)

	recorder, resp := postControl(t, h, `{"action":"register","id":"7","name":"Alice"}`)

	if recorder.Code != http.StatusOK || resp.Status != "success" {
		t.Fatalf("expected success, got %d %+v", recorder.Code, resp)
	}
	if ctrl.registeredID != 7 || ctrl.registeredName != "Alice" {
		t.Errorf("unexpected registration %d/%s", ctrl.registeredID, ctrl.registeredName)
	}
}

func TestControl_Errors(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		registerErr  error
		recognizeErr error
		expectedCode int
		expectedMsg  string
	}{
		{
			name:         "missing name",
			body:         `{"action":"register","id":7}`,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  msgMissingFields,
		},
		{
			name:         "missing id",
			body:         `{"action":"register","name":"Alice"}`,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  msgMissingFields,
		},
		{
			name:         "controller rejects request",
			body:         `{"action":"register","id":-1,"name":"Alice"}`,
			registerErr:  fmt.Errorf("%w: id must be a positive integer", controller.ErrInvalidRequest),
			expectedCode: http.StatusBadRequest,
			expectedMsg:  msgMissingFields,
		},
		{
			name:         "storage failure",
			body:         `{"action":"register","id":7,"name":"Alice"}`,
			registerErr:  fmt.Errorf("%w: connection refused", attendance.ErrStorage),
			expectedCode: http.StatusInternalServerError,
			expectedMsg:  "storage error",
		},
		{
			name:         "recognize without model",
			body:         `{"action":"recognize"}`,
			recognizeErr: vision.ErrModelNotFound,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  msgModelNotFound,
		},
		{
			name:         "unknown action",
			body:         `{"action":"dance"}`,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  msgInvalidAction,
		},
		{
			name:         "missing action",
			body:         `{}`,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  msgInvalidAction,
		},
		{
			name:         "malformed body",
			body:         `not json`,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  errInvalidRequestBody,
		},
		{
			name:         "unexpected failure",
			body:         `{"action":"recognize"}`,
			recognizeErr: errors.New("boom"),
			expectedCode: http.StatusInternalServerError,
			expectedMsg:  "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{registerErr: tt.registerErr, recognizeErr: tt.recognizeErr}
			recorder, resp := postControl(t, NewControlHandler(ctrl), tt.body)

			if recorder.Code != tt.expectedCode {
				t.Errorf("expected status %d, got %d", tt.expectedCode, recorder.Code)
			}
			if resp.Status != "error" || resp.Message != tt.expectedMsg {
				t.Errorf("expected error %q, got %+v", tt.expectedMsg, resp)
			}
		})
	}
}

func TestControl_RecognizeAndStop(t *testing.T) {
	ctrl := &fakeController{}
	h := NewControlHandler(ctrl)

	recorder, resp := postControl(t, h, `{"action":"recognize"}`)
	if recorder.Code != http.StatusOK || resp.Message != "Recognition started" {
		t.Errorf("unexpected recognize response %d %+v", recorder.Code, resp)
	}

	recorder, resp = postControl(t, h, `{"action":"stop"}`)
	if recorder.Code != http.StatusOK || resp.Message != "Stopped" || !ctrl.stopped {
		t.Errorf("unexpected stop response %d %+v", recorder.Code, resp)
	}
}

func TestControl_Mode(t *testing.T) {
	h := NewControlHandler(&fakeController{mode: controller.ModeRecognizing})

	req := httptest.NewRequest("GET", "/api/v1/mode", nil)
	recorder := httptest.NewRecorder()
	h.Mode(recorder, req)

	var status controller.Status
	if err := json.Unmarshal(recorder.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if status.Mode != controller.ModeRecognizing {
		t.Errorf("expected recognizing, got %s", status.Mode)
	}
}
