package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/membernet/backend/internal/friends"
	"github.com/membernet/backend/internal/middleware"
	"github.com/membernet/backend/internal/models"
)

type stubFriendService struct {
	sendErr    error
	listErr    error
	respondErr error
	removeErr  error

	recipient models.Member
	pending   []models.Member
	friends   []models.Member

	lastSender    string
	lastRecipient string
	lastAction    string
	lastFriend    string
}

func (s *stubFriendService) SendRequest(_ context.Context, senderID, recipientID string) (models.Member, error) {
	s.lastSender = senderID
	s.lastRecipient = recipientID
	if s.sendErr != nil {
		return models.Member{}, s.sendErr
	}
	return s.recipient, nil
}

func (s *stubFriendService) ListPendingRequests(_ context.Context, _ string) ([]models.Member, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.pending, nil
}

func (s *stubFriendService) ListFriends(_ context.Context, _ string) ([]models.Member, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.friends, nil
}

func (s *stubFriendService) RespondToRequest(_ context.Context, recipientID, senderID, action string) error {
	s.lastRecipient = recipientID
	s.lastSender = senderID
	s.lastAction = action
	return s.respondErr
}

func (s *stubFriendService) RemoveFriend(_ context.Context, memberID, friendID string) error {
	s.lastRecipient = memberID
	s.lastFriend = friendID
	return s.removeErr
}

func authedRequest(method, target string, body io.Reader, callerID string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if callerID != "" {
		req = req.WithContext(middleware.WithVerifiedMemberID(req.Context(), callerID))
	}
	return req
}

func TestFriendHandlerSendRequest(t *testing.T) {
	service := &stubFriendService{recipient: models.Member{
		ID:                    "member-2",
		Username:              "casey",
		PendingFriendRequests: []string{"member-1"},
	}}
	handler := FriendHandler{Friends: service}

	body, err := json.Marshal(sendFriendRequest{Recipient: "member-2"})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := authedRequest(http.MethodPost, "/api/v1/friend-requests", bytes.NewReader(body), "member-1")
	rec := httptest.NewRecorder()

	handler.SendRequest(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d", http.StatusCreated, rec.Code)
	}

	if service.lastSender != "member-1" || service.lastRecipient != "member-2" {
		t.Fatalf("expected sender from caller identity, got sender=%q recipient=%q", service.lastSender, service.lastRecipient)
	}

	var resp sendFriendResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Recipient.ID != "member-2" || resp.Recipient.Username != "casey" {
		t.Fatalf("unexpected recipient payload: %+v", resp.Recipient)
	}

	if len(resp.PendingFriendRequests) != 1 || resp.PendingFriendRequests[0] != "member-1" {
		t.Fatalf("unexpected pending list: %v", resp.PendingFriendRequests)
	}
}

func TestFriendHandlerSendRequestFailures(t *testing.T) {
	body := []byte(`{"recipient":"member-2"}`)

	cases := []struct {
		name       string
		handler    FriendHandler
		method     string
		caller     string
		body       []byte
		wantStatus int
	}{
		{"wrongMethod", FriendHandler{Friends: &stubFriendService{}}, http.MethodGet, "member-1", body, http.StatusMethodNotAllowed},
		{"missingService", FriendHandler{}, http.MethodPost, "member-1", body, http.StatusInternalServerError},
		{"unauthenticated", FriendHandler{Friends: &stubFriendService{}}, http.MethodPost, "", body, http.StatusUnauthorized},
		{"badJSON", FriendHandler{Friends: &stubFriendService{}}, http.MethodPost, "member-1", []byte("{"), http.StatusBadRequest},
		{"missingRecipient", FriendHandler{Friends: &stubFriendService{}}, http.MethodPost, "member-1", []byte(`{"recipient":" "}`), http.StatusUnprocessableEntity},
		{"selfRequest", FriendHandler{Friends: &stubFriendService{sendErr: friends.ErrSelfRelation}}, http.MethodPost, "member-1", []byte(`{"recipient":"member-1"}`), http.StatusUnprocessableEntity},
		{"unknownRecipient", FriendHandler{Friends: &stubFriendService{sendErr: friends.ErrMemberNotFound}}, http.MethodPost, "member-1", body, http.StatusNotFound},
		{"duplicate", FriendHandler{Friends: &stubFriendService{sendErr: friends.ErrDuplicateRequest}}, http.MethodPost, "member-1", body, http.StatusConflict},
		{"alreadyFriends", FriendHandler{Friends: &stubFriendService{sendErr: friends.ErrAlreadyFriends}}, http.MethodPost, "member-1", body, http.StatusConflict},
		{"internal", FriendHandler{Friends: &stubFriendService{sendErr: errors.New("boom")}}, http.MethodPost, "member-1", body, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := authedRequest(tc.method, "/api/v1/friend-requests", bytes.NewReader(tc.body), tc.caller)
			rec := httptest.NewRecorder()

			tc.handler.SendRequest(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestFriendHandlerListPending(t *testing.T) {
	service := &stubFriendService{pending: []models.Member{
		{ID: "member-2", Username: "casey", Password: "secret-hash"},
		{ID: "member-3", Username: "drew"},
	}}
	handler := FriendHandler{Friends: service}

	req := authedRequest(http.MethodGet, "/api/v1/friend-requests/pending", nil, "member-1")
	rec := httptest.NewRecorder()

	handler.ListPending(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp listMembersResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Members) != 2 || resp.Members[0].ID != "member-2" || resp.Members[1].ID != "member-3" {
		t.Fatalf("unexpected response payload: %+v", resp)
	}

	if bytes.Contains(rec.Body.Bytes(), []byte("secret-hash")) {
		t.Fatal("response leaked a credential field")
	}
}

func TestFriendHandlerListPendingFailures(t *testing.T) {
	req := authedRequest(http.MethodGet, "/api/v1/friend-requests/pending", nil, "")
	rec := httptest.NewRecorder()
	handler := FriendHandler{Friends: &stubFriendService{}}
	handler.ListPending(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized got %d", rec.Code)
	}

	req = authedRequest(http.MethodGet, "/api/v1/friend-requests/pending", nil, "member-1")
	rec = httptest.NewRecorder()
	handler = FriendHandler{Friends: &stubFriendService{listErr: friends.ErrMemberNotFound}}
	handler.ListPending(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected not found got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler = FriendHandler{Friends: &stubFriendService{listErr: errors.New("db down")}}
	handler.ListPending(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal error got %d", rec.Code)
	}
}

func TestFriendHandlerListFriends(t *testing.T) {
	service := &stubFriendService{friends: []models.Member{{ID: "member-2", Username: "casey"}}}
	handler := FriendHandler{Friends: service}

	req := authedRequest(http.MethodGet, "/api/v1/friends", nil, "member-1")
	rec := httptest.NewRecorder()

	handler.ListFriends(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp listMembersResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Members) != 1 || resp.Members[0].Username != "casey" {
		t.Fatalf("unexpected response payload: %+v", resp)
	}
}

func TestFriendHandlerRespond(t *testing.T) {
	cases := []struct {
		action      string
		wantMessage string
	}{
		{friends.ActionAccept, "Friend request accepted"},
		{friends.ActionDecline, "Friend request declined"},
	}

	for _, tc := range cases {
		t.Run(tc.action, func(t *testing.T) {
			service := &stubFriendService{}
			handler := FriendHandler{Friends: service}

			body, err := json.Marshal(respondFriendRequest{Action: tc.action})
			if err != nil {
				t.Fatalf("marshal request: %v", err)
			}

			req := authedRequest(http.MethodPatch, "/api/v1/friend-requests/member-2", bytes.NewReader(body), "member-1")
			rec := httptest.NewRecorder()

			handler.Respond(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
			}

			if service.lastRecipient != "member-1" || service.lastSender != "member-2" || service.lastAction != tc.action {
				t.Fatalf("unexpected call: recipient=%q sender=%q action=%q", service.lastRecipient, service.lastSender, service.lastAction)
			}

			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}

			if resp["message"] != tc.wantMessage {
				t.Fatalf("expected message %q got %q", tc.wantMessage, resp["message"])
			}
		})
	}
}

func TestFriendHandlerRespondFailures(t *testing.T) {
	body := []byte(`{"action":"accept"}`)

	cases := []struct {
		name       string
		handler    FriendHandler
		method     string
		target     string
		caller     string
		body       []byte
		wantStatus int
	}{
		{"wrongMethod", FriendHandler{Friends: &stubFriendService{}}, http.MethodPost, "/api/v1/friend-requests/member-2", "member-1", body, http.StatusMethodNotAllowed},
		{"missingService", FriendHandler{}, http.MethodPatch, "/api/v1/friend-requests/member-2", "member-1", body, http.StatusInternalServerError},
		{"unauthenticated", FriendHandler{Friends: &stubFriendService{}}, http.MethodPatch, "/api/v1/friend-requests/member-2", "", body, http.StatusUnauthorized},
		{"missingSender", FriendHandler{Friends: &stubFriendService{}}, http.MethodPatch, "/api/v1/friend-requests/", "member-1", body, http.StatusUnprocessableEntity},
		{"badJSON", FriendHandler{Friends: &stubFriendService{}}, http.MethodPatch, "/api/v1/friend-requests/member-2", "member-1", []byte("{"), http.StatusBadRequest},
		{"invalidAction", FriendHandler{Friends: &stubFriendService{respondErr: friends.ErrInvalidAction}}, http.MethodPatch, "/api/v1/friend-requests/member-2", "member-1", []byte(`{"action":"maybe"}`), http.StatusUnprocessableEntity},
		{"noPendingRequest", FriendHandler{Friends: &stubFriendService{respondErr: friends.ErrRequestNotFound}}, http.MethodPatch, "/api/v1/friend-requests/member-2", "member-1", body, http.StatusNotFound},
		{"unknownSender", FriendHandler{Friends: &stubFriendService{respondErr: friends.ErrMemberNotFound}}, http.MethodPatch, "/api/v1/friend-requests/member-2", "member-1", body, http.StatusNotFound},
		{"internal", FriendHandler{Friends: &stubFriendService{respondErr: errors.New("boom")}}, http.MethodPatch, "/api/v1/friend-requests/member-2", "member-1", body, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := authedRequest(tc.method, tc.target, bytes.NewReader(tc.body), tc.caller)
			rec := httptest.NewRecorder()

			tc.handler.Respond(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestFriendHandlerUnfriend(t *testing.T) {
	service := &stubFriendService{}
	handler := FriendHandler{Friends: service}

	req := authedRequest(http.MethodDelete, "/api/v1/friends/member-2", nil, "member-1")
	rec := httptest.NewRecorder()

	handler.Unfriend(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	if service.lastRecipient != "member-1" || service.lastFriend != "member-2" {
		t.Fatalf("unexpected call: member=%q friend=%q", service.lastRecipient, service.lastFriend)
	}
}

func TestFriendHandlerUnfriendFailures(t *testing.T) {
	cases := []struct {
		name       string
		handler    FriendHandler
		method     string
		target     string
		caller     string
		wantStatus int
	}{
		{"wrongMethod", FriendHandler{Friends: &stubFriendService{}}, http.MethodPost, "/api/v1/friends/member-2", "member-1", http.StatusMethodNotAllowed},
		{"unauthenticated", FriendHandler{Friends: &stubFriendService{}}, http.MethodDelete, "/api/v1/friends/member-2", "", http.StatusUnauthorized},
		{"missingFriendID", FriendHandler{Friends: &stubFriendService{}}, http.MethodDelete, "/api/v1/friends/", "member-1", http.StatusUnprocessableEntity},
		{"notFriends", FriendHandler{Friends: &stubFriendService{removeErr: friends.ErrNotFriends}}, http.MethodDelete, "/api/v1/friends/member-2", "member-1", http.StatusNotFound},
		{"internal", FriendHandler{Friends: &stubFriendService{removeErr: errors.New("boom")}}, http.MethodDelete, "/api/v1/friends/member-2", "member-1", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := authedRequest(tc.method, tc.target, nil, tc.caller)
			rec := httptest.NewRecorder()

			tc.handler.Unfriend(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}
