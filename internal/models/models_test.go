package models

import "testing"

func TestUploadStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to UploadStatus
		want     bool
	}{
		{UploadPending, UploadUploading, true},
		{UploadPending, UploadFailed, true},
		{UploadUploading, UploadSucceeded, true},
		{UploadUploading, UploadFailed, true},
		{UploadUploading, UploadPending, false},
		{UploadUploading, UploadUploading, false},
		{UploadSucceeded, UploadFailed, false},
		{UploadFailed, UploadSucceeded, false},
		{UploadFailed, UploadUploading, false},
		{UploadUploading, UploadStatus("bogus"), false},
	}
	for _, tc := range cases {
		if got := tc.from.CanAdvance(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: want %v got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestMessageValid(t *testing.T) {
	if !(Message{Role: RoleUser, Content: "hi"}).Valid() {
		t.Fatalf("user message should be valid")
	}
	if (Message{Role: RoleAssistant}).Valid() {
		t.Fatalf("empty content should be invalid")
	}
	if (Message{Role: Role("bot"), Content: "x"}).Valid() {
		t.Fatalf("unknown role should be invalid")
	}
	if (Message{Role: Role("system"), Content: "x"}).Valid() {
		t.Fatalf("system role is not a transcript role")
	}
}
