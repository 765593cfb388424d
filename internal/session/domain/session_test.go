package domain

import (
	"testing"
	"time"
)

func TestSession_Active(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{ExpirationDate: now.Add(time.Minute)}
	if !s.Active(now) {
		t.Error("session should be active before expiry")
	}
	if s.Active(now.Add(time.Minute)) {
		t.Error("session should not be active at expiry")
	}
	var nilSession *Session
	if nilSession.Active(now) {
		t.Error("nil session is never active")
	}
}

func TestSession_OwnedBy(t *testing.T) {
	s := &Session{UserID: "u1"}
	if !s.OwnedBy("u1") || s.OwnedBy("u2") || s.OwnedBy("") {
		t.Error("OwnedBy mismatch")
	}
}

func TestSession_Validate(t *testing.T) {
	now := time.Now()
	testCases := []struct {
		name    string
		s       Session
		wantErr bool
	}{
		{"valid", Session{UserID: "u", DeviceID: "d", LastActiveDate: now, ExpirationDate: now.Add(time.Hour)}, false},
		{"no user", Session{DeviceID: "d", LastActiveDate: now, ExpirationDate: now.Add(time.Hour)}, true},
		{"no device", Session{UserID: "u", LastActiveDate: now, ExpirationDate: now.Add(time.Hour)}, true},
		{"no expiry", Session{UserID: "u", DeviceID: "d", LastActiveDate: now}, true},
		{"expiry before activity", Session{UserID: "u", DeviceID: "d", LastActiveDate: now, ExpirationDate: now}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.s.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
